// Package preprocess holds the deterministic image filters applied before OCR.
package preprocess

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
	"github.com/joseph-ayodele/document-extractor/internal/common"
)

// Filter transforms an image. Filters must be deterministic.
type Filter func(image.Image) image.Image

// Chain composes filters left to right.
func Chain(filters ...Filter) Filter {
	return func(img image.Image) image.Image {
		for _, f := range filters {
			img = f(img)
		}
		return img
	}
}

// Identity returns the image unchanged.
func Identity(img image.Image) image.Image { return img }

func Grayscale() Filter {
	return func(img image.Image) image.Image { return imaging.Grayscale(img) }
}

func Contrast(pct float64) Filter {
	return func(img image.Image) image.Image { return imaging.AdjustContrast(img, pct) }
}

func Sharpen(sigma float64) Filter {
	return func(img image.Image) image.Image { return imaging.Sharpen(img, sigma) }
}

// UpscaleTo enlarges images narrower than minWidth; small scans OCR poorly.
func UpscaleTo(minWidth int) Filter {
	return func(img image.Image) image.Image {
		if img.Bounds().Dx() >= minWidth {
			return img
		}
		return imaging.Resize(img, minWidth, 0, imaging.Lanczos)
	}
}

// Binarize maps every pixel to black or white around a fixed luminance threshold.
func Binarize(threshold uint8) Filter {
	return func(img image.Image) image.Image {
		return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
			lum := (299*uint32(c.R) + 587*uint32(c.G) + 114*uint32(c.B)) / 1000
			v := uint8(0)
			if lum >= uint32(threshold) {
				v = 255
			}
			return color.NRGBA{R: v, G: v, B: v, A: c.A}
		})
	}
}

// Default is grayscale, contrast, sharpen and binarize.
func Default() Filter {
	return Chain(
		UpscaleTo(1000),
		Grayscale(),
		Contrast(30),
		Sharpen(1.5),
		Binarize(160),
	)
}

// Load opens and decodes an image file, honoring EXIF orientation.
func Load(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, common.InputError("open image "+path, err)
	}
	return img, nil
}

// Decode reads an image from r.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, common.InputError("decode image", err)
	}
	return img, nil
}

// EncodePNG applies f (nil means Identity) and encodes the result as PNG.
func EncodePNG(img image.Image, f Filter) ([]byte, error) {
	if f == nil {
		f = Identity
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, f(img), imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
