package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Gosseract runs libtesseract in-process.
type Gosseract struct {
	cfg           TesseractConfig
	clientFactory func() *gosseract.Client
}

func NewGosseract(cfg TesseractConfig) *Gosseract {
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	return &Gosseract{cfg: cfg, clientFactory: gosseract.NewClient}
}

func (e *Gosseract) Name() string { return "gosseract" }

func (e *Gosseract) Recognize(ctx context.Context, img Image) (Result, error) {
	c := e.clientFactory()
	defer c.Close()

	if e.cfg.TessdataDir != "" {
		c.SetTessdataPrefix(e.cfg.TessdataDir)
	}
	if err := c.SetLanguage(e.cfg.Language); err != nil {
		return Result{}, fmt.Errorf("gosseract: set language: %w", err)
	}
	if e.cfg.PSM > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(e.cfg.PSM)); err != nil {
			return Result{}, fmt.Errorf("gosseract: set psm: %w", err)
		}
	}
	if err := c.SetImageFromBytes(img.PNG); err != nil {
		return Result{}, fmt.Errorf("gosseract: set image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return Result{}, fmt.Errorf("gosseract: recognize lines: %w", err)
	}
	lines := make([]Line, 0, len(boxes))
	for _, b := range boxes {
		text := Normalize(strings.TrimSpace(b.Word))
		if text == "" {
			continue
		}
		lines = append(lines, Line{Text: text, Confidence: b.Confidence / 100.0, HasConfidence: true})
	}
	return Result{Engine: e.Name(), Lines: lines}, nil
}
