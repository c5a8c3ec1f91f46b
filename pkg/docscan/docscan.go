// Package docscan extracts a candidate total amount from scanned invoice
// images and produces thumbnails for the attachment gallery. OCR results
// are suggestions only; nothing downstream trusts them without review.
package docscan

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// imageExts are the file types worth sending through OCR or thumbnailing.
var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// IsImage reports whether the path looks like a raster image we handle.
func IsImage(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}

// ExtractAmount runs Tesseract over a few preprocessed variants of the
// image and returns the best total-amount candidate in the smallest
// currency unit, with a rough confidence in [0,1]. A readable image with
// no recognisable amount returns (0, 0, nil).
func ExtractAmount(path string) (int64, float64, error) {
	if !IsImage(path) {
		return 0, 0, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
	variants, cleanup, err := preprocessVariants(path)
	if err != nil {
		return 0, 0, fmt.Errorf("preprocess: %w", err)
	}
	defer cleanup()

	best := amountCandidate{}
	client := gosseract.NewClient()
	defer client.Close()
	_ = client.SetLanguage("eng")

	for _, v := range variants {
		if err := client.SetImage(v); err != nil {
			continue
		}
		text, err := client.Text()
		if err != nil || strings.TrimSpace(text) == "" {
			continue
		}
		if c := bestAmountIn(text); c.score > best.score {
			best = c
		}
	}
	return best.amount, best.score, nil
}

// Thumbnail writes a bounded-size preview next to dst; the aspect ratio
// is preserved.
func Thumbnail(src, dst string, maxDim int) error {
	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	thumb := imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	return imaging.Save(thumb, dst)
}
