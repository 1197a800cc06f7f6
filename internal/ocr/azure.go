package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"
)

// Azure calls the Computer Vision printed-text OCR endpoint. It reports no
// confidences, so merges against it fall back to line length.
type Azure struct {
	client *computervision.BaseClient
}

func NewAzure(endpoint, apiKey string) *Azure {
	client := computervision.New(endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(apiKey)
	return &Azure{client: &client}
}

func (e *Azure) Name() string { return "azure" }

func (e *Azure) Recognize(ctx context.Context, img Image) (Result, error) {
	result, err := e.client.RecognizePrintedTextInStream(
		ctx,
		true,
		io.NopCloser(bytes.NewReader(img.PNG)),
		computervision.OcrLanguages(computervision.En),
	)
	if err != nil {
		return Result{}, fmt.Errorf("azure ocr: %w", err)
	}
	return Result{Engine: e.Name(), Lines: azureLines(result)}, nil
}

func azureLines(result computervision.OcrResult) []Line {
	var lines []Line
	if result.Regions == nil {
		return lines
	}
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			var sb strings.Builder
			for _, word := range *line.Words {
				if word.Text == nil {
					continue
				}
				sb.WriteString(*word.Text)
				sb.WriteString(" ")
			}
			if text := Normalize(sb.String()); text != "" {
				lines = append(lines, Line{Text: text})
			}
		}
	}
	return lines
}
