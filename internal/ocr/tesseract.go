package ocr

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// TesseractConfig configures the tesseract CLI engine.
type TesseractConfig struct {
	Binary      string // binary name or absolute path; if empty -> "tesseract"
	Language    string // default "eng"
	TessdataDir string
	PSM         int // e.g., 6 is good for uniform block of text
	OEM         int // 1 = LSTM; leave 0 to use default
}

// TesseractCLI shells out to the tesseract binary and reads its TSV output,
// which carries per-word confidences.
type TesseractCLI struct {
	cfg    TesseractConfig
	runner Runner
}

func NewTesseractCLI(cfg TesseractConfig, runner Runner) *TesseractCLI {
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &TesseractCLI{cfg: cfg, runner: runner}
}

func (e *TesseractCLI) Name() string { return "tesseract" }

func (e *TesseractCLI) Recognize(ctx context.Context, img Image) (Result, error) {
	f, err := os.CreateTemp("", "docextract-*.png")
	if err != nil {
		return Result{}, fmt.Errorf("tesseract: temp file: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(img.PNG); err != nil {
		f.Close()
		return Result{}, fmt.Errorf("tesseract: write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return Result{}, fmt.Errorf("tesseract: close temp file: %w", err)
	}

	// tesseract <file> stdout -l <lang> [--psm N] [--oem N] [--tessdata-dir D] tsv
	args := []string{f.Name(), "stdout", "-l", e.cfg.Language}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	args = append(args, "tsv")

	out, errb, err := e.runner.Run(ctx, e.cfg.Binary, args...)
	if err != nil {
		return Result{}, fmt.Errorf("tesseract: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
	}
	return Result{Engine: e.Name(), Lines: ParseTSV(string(out))}, nil
}

// ParseTSV groups tesseract TSV word rows into lines. A line's confidence is
// the mean of its word confidences scaled to 0..1; words reporting -1 are skipped.
func ParseTSV(tsv string) []Line {
	type acc struct {
		words []string
		sum   float64
		n     int
	}
	var order []string
	byKey := map[string]*acc{}

	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || len(ln) == 0 {
			continue
		} // skip header
		cols := strings.Split(strings.TrimRight(ln, "\r"), "\t")
		if len(cols) < 12 || cols[0] != "5" {
			continue
		} // word rows only
		word := strings.TrimSpace(cols[11])
		if word == "" {
			continue
		}
		key := strings.Join(cols[1:5], ".") // page.block.par.line
		a, ok := byKey[key]
		if !ok {
			a = &acc{}
			byKey[key] = a
			order = append(order, key)
		}
		a.words = append(a.words, word)
		if conf, err := strconv.ParseFloat(cols[10], 64); err == nil && conf >= 0 {
			a.sum += conf
			a.n++
		}
	}

	lines := make([]Line, 0, len(order))
	for _, key := range order {
		a := byKey[key]
		l := Line{Text: Normalize(strings.Join(a.words, " "))}
		if l.Text == "" {
			continue
		}
		if a.n > 0 {
			l.Confidence = a.sum / float64(a.n) / 100.0
			l.HasConfidence = true
		}
		lines = append(lines, l)
	}
	return lines
}
