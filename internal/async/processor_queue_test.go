package async

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/document-extractor/constants"
	"github.com/joseph-ayodele/document-extractor/internal/entity"
	"github.com/joseph-ayodele/document-extractor/internal/pipeline"
)

// fakeProcessor blocks on paths listed in block until their context ends.
type fakeProcessor struct {
	block   map[string]bool
	started chan string
}

func (f *fakeProcessor) Process(ctx context.Context, path string) (pipeline.Outcome, error) {
	if f.started != nil {
		f.started <- path
	}
	if f.block[path] {
		<-ctx.Done()
		return pipeline.Outcome{Status: constants.RunStatusCanceled}, ctx.Err()
	}
	rec := entity.NewDocumentRecord()
	rec.DocumentNumber = path
	return pipeline.Outcome{Status: constants.RunStatusCompleted, Record: rec}, nil
}

func collect(q *ProcessorQueue) <-chan map[string]Result {
	out := make(chan map[string]Result, 1)
	go func() {
		got := map[string]Result{}
		for r := range q.Results() {
			got[r.Job.Path] = r
		}
		out <- got
	}()
	return out
}

func TestQueueProcessesEveryJob(t *testing.T) {
	q := NewProcessorQueue(&fakeProcessor{}, nil, WithWorkers(3), WithQueueSize(4))
	done := collect(q)

	paths := []string{"a.png", "b.png", "c.png", "d.png", "e.png", "f.png", "g.png"}
	for _, p := range paths {
		if err := q.Enqueue(context.Background(), Job{Path: p}); err != nil {
			t.Fatalf("enqueue %s: %v", p, err)
		}
	}
	q.Shutdown(context.Background())

	got := <-done
	if len(got) != len(paths) {
		t.Fatalf("got %d results, want %d", len(got), len(paths))
	}
	for _, p := range paths {
		r := got[p]
		if r.Err != nil || r.Outcome.Record.DocumentNumber != p || r.Job.ID == uuid.Nil {
			t.Fatalf("result for %s = %+v", p, r)
		}
	}
}

func TestCancelingOneJobLeavesOthersAlone(t *testing.T) {
	fp := &fakeProcessor{block: map[string]bool{"slow.png": true}, started: make(chan string, 8)}
	q := NewProcessorQueue(fp, nil, WithWorkers(2))
	done := collect(q)

	slow := Job{ID: uuid.New(), Path: "slow.png"}
	if err := q.Enqueue(context.Background(), slow); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if p := <-fp.started; p != "slow.png" {
		t.Fatalf("started %s", p)
	}
	if err := q.Enqueue(context.Background(), Job{Path: "fast.png"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	<-fp.started

	if !q.Cancel(slow.ID) {
		t.Fatalf("slow job should be running")
	}
	q.Shutdown(context.Background())

	got := <-done
	if !errors.Is(got["slow.png"].Err, context.Canceled) || got["slow.png"].Outcome.Status != constants.RunStatusCanceled {
		t.Fatalf("slow = %+v", got["slow.png"])
	}
	if got["fast.png"].Err != nil || got["fast.png"].Outcome.Status != constants.RunStatusCompleted {
		t.Fatalf("fast = %+v", got["fast.png"])
	}
}

func TestPerDocumentTimeout(t *testing.T) {
	fp := &fakeProcessor{block: map[string]bool{"stuck.png": true}}
	q := NewProcessorQueue(fp, nil, WithWorkers(1), WithProcessTimeout(20*time.Millisecond))
	done := collect(q)

	_ = q.Enqueue(context.Background(), Job{Path: "stuck.png"})
	_ = q.Enqueue(context.Background(), Job{Path: "next.png"})
	q.Shutdown(context.Background())

	got := <-done
	if !errors.Is(got["stuck.png"].Err, context.DeadlineExceeded) {
		t.Fatalf("stuck = %+v", got["stuck.png"])
	}
	if got["next.png"].Err != nil {
		t.Fatalf("next = %+v", got["next.png"])
	}
}

func TestEnqueueAfterShutdown(t *testing.T) {
	q := NewProcessorQueue(&fakeProcessor{}, nil)
	done := collect(q)
	q.Shutdown(context.Background())
	<-done
	if err := q.Enqueue(context.Background(), Job{Path: "late.png"}); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("err = %v", err)
	}
}

func TestCancelQueuedAndUnknownJobs(t *testing.T) {
	fp := &fakeProcessor{block: map[string]bool{"slow.png": true, "waiting.png": true}, started: make(chan string, 8)}
	q := NewProcessorQueue(fp, nil, WithWorkers(1))
	done := collect(q)

	if q.Cancel(uuid.New()) {
		t.Fatalf("unknown job should not be cancelable")
	}

	slow := Job{ID: uuid.New(), Path: "slow.png"}
	waiting := Job{ID: uuid.New(), Path: "waiting.png"}
	for _, j := range []Job{slow, waiting} {
		if err := q.Enqueue(context.Background(), j); err != nil {
			t.Fatalf("enqueue %s: %v", j.Path, err)
		}
	}
	<-fp.started
	if !q.Cancel(waiting.ID) {
		t.Fatalf("queued job should be cancelable")
	}
	if !q.Cancel(slow.ID) {
		t.Fatalf("running job should be cancelable")
	}
	q.Shutdown(context.Background())

	got := <-done
	if !errors.Is(got["waiting.png"].Err, context.Canceled) {
		t.Fatalf("waiting = %+v", got["waiting.png"])
	}
	if q.Cancel(slow.ID) {
		t.Fatalf("finished job should not be cancelable")
	}
	q.cmu.Lock()
	defer q.cmu.Unlock()
	if len(q.queued) != 0 || len(q.running) != 0 {
		t.Fatalf("leftover bookkeeping: queued=%d running=%d", len(q.queued), len(q.running))
	}
}
