package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/document-extractor/constants"
	"github.com/joseph-ayodele/document-extractor/internal/async"
	"github.com/joseph-ayodele/document-extractor/internal/common"
	"github.com/joseph-ayodele/document-extractor/internal/entity"
	"github.com/joseph-ayodele/document-extractor/internal/ingest"
	"github.com/joseph-ayodele/document-extractor/internal/pipeline"
	"github.com/joseph-ayodele/document-extractor/internal/repository"
)

type fakeProcessor struct {
	out     pipeline.Outcome
	err     error
	gotName string
	gotData []byte
}

func (f *fakeProcessor) ProcessBytes(_ context.Context, name string, data []byte) (pipeline.Outcome, error) {
	f.gotName, f.gotData = name, data
	return f.out, f.err
}

func completed() pipeline.Outcome {
	rec := entity.NewDocumentRecord()
	rec.DocumentType = constants.Invoice
	rec.DocumentNumber = "INV-1"
	rec.TotalAmount = "118.00"
	rec.Items = []entity.LineItem{{Description: "Widget", Amount: "100.00"}}
	return pipeline.Outcome{
		Status: constants.RunStatusCompleted,
		Record: rec,
		Diagnostics: &entity.Diagnostics{
			RequestID:     "req-1",
			LLMSkipReason: "OPENAI_API_KEY not set",
			Consistency:   &entity.ConsistencyWarning{Expected: "118.00", Reported: "150.00", Difference: "32.00"},
		},
	}
}

func dialExtractor(t *testing.T, proc BytesProcessor) *ExtractorClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	RegisterExtractorServer(s, NewExtractorService(proc, nil))
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return NewExtractorClient(conn)
}

func TestGRPCExtract(t *testing.T) {
	proc := &fakeProcessor{out: completed()}
	client := dialExtractor(t, proc)

	ctx := metadata.AppendToOutgoingContext(context.Background(), FilenameKey, "inv.png")
	var header metadata.MD
	st, err := client.Extract(ctx, wrapperspb.Bytes([]byte("png-bytes")), grpc.Header(&header))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if proc.gotName != "inv.png" || string(proc.gotData) != "png-bytes" {
		t.Fatalf("processor got name=%q data=%q", proc.gotName, proc.gotData)
	}
	if got := st.Fields["document_number"].GetStringValue(); got != "INV-1" {
		t.Fatalf("document_number = %q", got)
	}
	if got := st.Fields["client_info"].GetStructValue().Fields["gstin"].GetStringValue(); got != "" {
		t.Fatalf("empty party field should be \"\", got %q", got)
	}
	if items := st.Fields["items"].GetListValue().GetValues(); len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	if v := header.Get("x-request-id"); len(v) != 1 || v[0] != "req-1" {
		t.Fatalf("x-request-id = %v", v)
	}
	if v := header.Get("x-consistency-reported"); len(v) != 1 || v[0] != "150.00" {
		t.Fatalf("x-consistency-reported = %v", v)
	}
}

func TestGRPCExtractErrors(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		err   error
		codes codes.Code
	}{
		{"empty image", nil, nil, codes.InvalidArgument},
		{"undecodable", []byte("x"), common.InputError("decode image", errors.New("unknown format")), codes.InvalidArgument},
		{"canceled", []byte("x"), common.Canceled("TEXT_MERGED", context.Canceled), codes.Canceled},
		{"deadline", []byte("x"), common.Canceled("RULE_EXTRACTED", context.DeadlineExceeded), codes.DeadlineExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := dialExtractor(t, &fakeProcessor{err: tt.err, out: pipeline.Outcome{Status: constants.RunStatusFailed}})
			_, err := client.Extract(context.Background(), wrapperspb.Bytes(tt.data))
			if status.Code(err) != tt.codes {
				t.Fatalf("code = %v, want %v (err %v)", status.Code(err), tt.codes, err)
			}
		})
	}
}

func multipartUpload(t *testing.T, field, name string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(field, name)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &body, w.FormDataContentType()
}

func TestHTTPExtract(t *testing.T) {
	gin.SetMode(gin.TestMode)
	proc := &fakeProcessor{out: completed()}
	r := NewHTTPHandler(proc, HTTPConfig{})

	body, ctype := multipartUpload(t, "file", "scan.png", []byte("img"))
	req := httptest.NewRequest(http.MethodPost, "/v1/extract?diagnostics=true", body)
	req.Header.Set("Content-Type", ctype)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Status      string                `json:"status"`
		Record      entity.DocumentRecord `json:"record"`
		Diagnostics *entity.Diagnostics   `json:"diagnostics"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "COMPLETED" || resp.Record.DocumentNumber != "INV-1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Diagnostics == nil || resp.Diagnostics.RequestID != "req-1" {
		t.Fatalf("diagnostics missing: %+v", resp.Diagnostics)
	}
	if proc.gotName != "scan.png" {
		t.Fatalf("name = %q", proc.gotName)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing X-Request-ID header")
	}
}

func TestHTTPExtractFailures(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("missing file field", func(t *testing.T) {
		r := NewHTTPHandler(&fakeProcessor{out: completed()}, HTTPConfig{})
		body, ctype := multipartUpload(t, "other", "scan.png", []byte("img"))
		req := httptest.NewRequest(http.MethodPost, "/v1/extract", body)
		req.Header.Set("Content-Type", ctype)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", w.Code)
		}
	})

	t.Run("input error", func(t *testing.T) {
		proc := &fakeProcessor{
			out: pipeline.Outcome{Status: constants.RunStatusFailed},
			err: common.InputError("decode image", errors.New("unknown format")),
		}
		r := NewHTTPHandler(proc, HTTPConfig{})
		body, ctype := multipartUpload(t, "file", "scan.png", []byte("junk"))
		req := httptest.NewRequest(http.MethodPost, "/v1/extract", body)
		req.Header.Set("Content-Type", ctype)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", w.Code)
		}
	})

	t.Run("upload too large", func(t *testing.T) {
		r := NewHTTPHandler(&fakeProcessor{out: completed()}, HTTPConfig{MaxUpload: 16})
		body, ctype := multipartUpload(t, "file", "scan.png", bytes.Repeat([]byte("a"), 1024))
		req := httptest.NewRequest(http.MethodPost, "/v1/extract", body)
		req.Header.Set("Content-Type", ctype)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusRequestEntityTooLarge && w.Code != http.StatusBadRequest {
			t.Fatalf("expected status 413 or 400, got %d", w.Code)
		}
	})
}

func TestHTTPHealthAndMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewHTTPHandler(&fakeProcessor{}, HTTPConfig{})
	for _, path := range []string{"/healthz", "/metrics"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", path, w.Code)
		}
	}
}

type fakeQueue struct {
	jobs []async.Job
	err  error
}

func (q *fakeQueue) Enqueue(_ context.Context, job async.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}
func (q *fakeQueue) Cancel(uuid.UUID) bool        { return false }
func (q *fakeQueue) Results() <-chan async.Result { return nil }
func (q *fakeQueue) Shutdown(context.Context)     {}

func TestIngestionSubmitAndRecord(t *testing.T) {
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{}, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(db.Close)
	journal := repository.NewExtractionRepository(db, nil)

	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	if err := os.WriteFile(path, []byte("scan-a"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	queue := &fakeQueue{}
	svc := NewIngestionService(ingest.NewFSIngestor(nil), queue, journal, nil)

	first, err := svc.Submit(ctx, path)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if first.Skipped || first.ExtractionID == uuid.Nil || len(queue.jobs) != 1 {
		t.Fatalf("first submit = %+v, jobs = %d", first, len(queue.jobs))
	}
	again, err := svc.Submit(ctx, path)
	if err != nil || !again.Skipped || len(queue.jobs) != 1 {
		t.Fatalf("duplicate submit = %+v, %v, jobs = %d", again, err, len(queue.jobs))
	}

	results := make(chan async.Result, 1)
	results <- async.Result{Job: queue.jobs[0], Outcome: completed()}
	close(results)
	counts := svc.Record(ctx, results)
	if counts[constants.RunStatusCompleted] != 1 {
		t.Fatalf("counts = %v", counts)
	}
	row, err := journal.Get(ctx, first.ExtractionID)
	if err != nil || row.Status != constants.RunStatusCompleted || row.Record.DocumentNumber != "INV-1" {
		t.Fatalf("journal row = %+v, %v", row, err)
	}

	// A fresh ingestor has no memory of the file, but the journal does.
	fresh := NewIngestionService(ingest.NewFSIngestor(nil), queue, journal, nil)
	sub, err := fresh.Submit(ctx, path)
	if err != nil || !sub.Skipped || sub.ExtractionID != first.ExtractionID {
		t.Fatalf("resubmit after completion = %+v, %v", sub, err)
	}

	if _, err := svc.Submit(ctx, filepath.Join(dir, "notes.txt")); !common.IsInputError(err) {
		t.Fatalf("unsupported file should be an input error, got %v", err)
	}
}

func TestIngestionSubmitDirectory(t *testing.T) {
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{}, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(db.Close)
	journal := repository.NewExtractionRepository(db, nil)

	dir := t.TempDir()
	for name, content := range map[string]string{
		"a.png":       "scan-a",
		"copy-a.png":  "scan-a",
		"b.jpg":       "scan-b",
		"readme.txt":  "ignored",
		".hidden.png": "hidden",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	queue := &fakeQueue{}
	svc := NewIngestionService(ingest.NewFSIngestor(nil), queue, journal, nil)
	subs, stats, err := svc.SubmitDirectory(ctx, dir, true)
	if err != nil {
		t.Fatalf("submit dir: %v", err)
	}
	if stats.Matched != 3 || len(subs) != 3 {
		t.Fatalf("matched = %d, subs = %d", stats.Matched, len(subs))
	}
	if len(queue.jobs) != 2 {
		t.Fatalf("queued = %d, want 2 (duplicate content skipped)", len(queue.jobs))
	}
	rows, err := journal.List(ctx, constants.RunStatusRunning)
	if err != nil || len(rows) != 2 {
		t.Fatalf("running rows = %d, %v", len(rows), err)
	}
}

func TestIngestionRetriesContentThatWasNotExtracted(t *testing.T) {
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{}, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(db.Close)
	journal := repository.NewExtractionRepository(db, nil)

	path := filepath.Join(t.TempDir(), "a.png")
	if err := os.WriteFile(path, []byte("scan-a"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	queue := &fakeQueue{err: async.ErrQueueClosed}
	svc := NewIngestionService(ingest.NewFSIngestor(nil), queue, journal, nil)
	if _, err := svc.Submit(ctx, path); !errors.Is(err, async.ErrQueueClosed) {
		t.Fatalf("submit on a closed queue: err = %v", err)
	}
	canceled, err := journal.List(ctx, constants.RunStatusCanceled)
	if err != nil || len(canceled) != 1 || canceled[0].ErrorMessage == nil || !strings.HasPrefix(*canceled[0].ErrorMessage, "not queued") {
		t.Fatalf("canceled rows = %+v, %v", canceled, err)
	}

	queue.err = nil
	sub, err := svc.Submit(ctx, path)
	if err != nil || sub.Skipped || len(queue.jobs) != 1 {
		t.Fatalf("retry after a closed queue = %+v, %v, jobs = %d", sub, err, len(queue.jobs))
	}

	results := make(chan async.Result, 1)
	results <- async.Result{Job: queue.jobs[0], Outcome: pipeline.Outcome{Status: constants.RunStatusFailed}, Err: errors.New("decode")}
	close(results)
	svc.Record(ctx, results)

	sub, err = svc.Submit(ctx, path)
	if err != nil || sub.Skipped || len(queue.jobs) != 2 {
		t.Fatalf("retry after a failed run = %+v, %v, jobs = %d", sub, err, len(queue.jobs))
	}
}
