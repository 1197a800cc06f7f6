package ocr

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t800\t600\t-1\t\n" +
	"4\t1\t1\t1\t1\t0\t10\t10\t200\t20\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t10\t10\t50\t20\t96.5\tTAX\n" +
	"5\t1\t1\t1\t1\t2\t70\t10\t90\t20\t91.5\tINVOICE\n" +
	"5\t1\t1\t1\t2\t1\t10\t40\t60\t20\t80\tBill\n" +
	"5\t1\t1\t1\t2\t2\t80\t40\t30\t20\t-1\tTo:\n"

func TestParseTSVGroupsWordsIntoLines(t *testing.T) {
	got := ParseTSV(sampleTSV)
	if len(got) != 2 {
		t.Fatalf("expected 2 lines, got %d: %+v", len(got), got)
	}
	if got[0].Text != "TAX INVOICE" || !got[0].HasConfidence || got[0].Confidence != 0.94 {
		t.Fatalf("line 0 = %+v", got[0])
	}
	if got[1].Text != "Bill To:" || got[1].Confidence != 0.8 {
		t.Fatalf("line 1 = %+v", got[1])
	}
}

type fakeRunner struct {
	out  string
	err  error
	args []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.args = append([]string{name}, args...)
	if len(args) > 0 {
		if _, err := os.Stat(args[0]); err != nil {
			return nil, nil, err
		}
	}
	return []byte(f.out), []byte("stderr"), f.err
}

func TestTesseractCLIUsesTSVMode(t *testing.T) {
	r := &fakeRunner{out: sampleTSV}
	eng := NewTesseractCLI(TesseractConfig{PSM: 6, TessdataDir: "/td"}, r)
	res, err := eng.Recognize(context.Background(), Image{Name: "x.png", PNG: []byte{0x89}})
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if len(res.Lines) != 2 || res.Engine != "tesseract" {
		t.Fatalf("result = %+v", res)
	}
	joined := strings.Join(r.args, " ")
	for _, want := range []string{"tesseract ", " stdout -l eng", "--psm 6", "--tessdata-dir /td", " tsv"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args %q missing %q", joined, want)
		}
	}
}

type stubEngine struct {
	name  string
	res   Result
	err   error
	delay time.Duration
}

func (s stubEngine) Name() string { return s.name }

func (s stubEngine) Recognize(ctx context.Context, _ Image) (Result, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	return s.res, s.err
}

func TestRecognizeAllIsolatesFailures(t *testing.T) {
	rec := NewRecognizer([]Engine{
		stubEngine{name: "broken", err: errors.New("exit status 1")},
		stubEngine{name: "slow", delay: time.Second},
		stubEngine{name: "good", res: Result{Lines: []Line{{Text: "INVOICE"}}}},
	}, 50*time.Millisecond, nil)

	results, failed := rec.RecognizeAll(context.Background(), Image{Name: "x"})
	if len(results) != 1 || results[0].Engine != "good" {
		t.Fatalf("results = %+v", results)
	}
	if len(failed) != 2 || failed[0].Backend != "broken" || failed[1].Backend != "slow" {
		t.Fatalf("failed = %+v", failed)
	}
}
