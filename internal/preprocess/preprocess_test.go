package preprocess

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/joseph-ayodele/document-extractor/internal/common"
)

func sample() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	img.Set(0, 0, color.NRGBA{R: 250, G: 250, B: 250, A: 255})
	img.Set(1, 0, color.NRGBA{R: 20, G: 30, B: 10, A: 255})
	img.Set(2, 0, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
	return img
}

func TestBinarizeProducesOnlyBlackAndWhite(t *testing.T) {
	out := imaging.Clone(Binarize(128)(sample()))
	for y := 0; y < out.Bounds().Dy(); y++ {
		for x := 0; x < out.Bounds().Dx(); x++ {
			c := out.NRGBAAt(x, y)
			if (c.R != 0 && c.R != 255) || c.R != c.G || c.G != c.B {
				t.Fatalf("pixel (%d,%d) = %v is not binary", x, y, c)
			}
		}
	}
	if out.NRGBAAt(0, 0).R != 255 || out.NRGBAAt(1, 0).R != 0 {
		t.Fatalf("unexpected threshold result")
	}
}

func TestDefaultChainIsDeterministic(t *testing.T) {
	a, err := EncodePNG(sample(), Default())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	b, err := EncodePNG(sample(), Default())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("same input produced different output")
	}
}

func TestLoadReportsInputError(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.png")); !common.IsInputError(err) {
		t.Fatalf("missing file: expected input error, got %v", err)
	}
	bad := filepath.Join(dir, "corrupt.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); !common.IsInputError(err) {
		t.Fatalf("corrupt file: expected input error, got %v", err)
	}
}
