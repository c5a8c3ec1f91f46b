package docscan

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// preprocessVariants renders the source image in a few forms that help
// Tesseract with low-contrast scans: the original (upscaled when small),
// a contrast-boosted grayscale, and a binarized pass. Variants are
// written to a temp dir; the returned cleanup removes them.
func preprocessVariants(path string) ([]string, func(), error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, nil, err
	}
	if img.Bounds().Dx() < 900 {
		img = imaging.Resize(img, 1200, 0, imaging.Lanczos)
	}

	dir, err := os.MkdirTemp("", "docscan-")
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	gray := imaging.Grayscale(img)
	boosted := imaging.AdjustContrast(gray, 30)

	variants := []struct {
		name string
		img  image.Image
	}{
		{"orig.png", img},
		{"gray.png", boosted},
		{"bin.png", binarize(boosted, 150)},
	}
	paths := make([]string, 0, len(variants))
	for _, v := range variants {
		p := filepath.Join(dir, v.name)
		if err := imaging.Save(v.img, p); err != nil {
			continue
		}
		paths = append(paths, p)
	}
	if len(paths) == 0 {
		cleanup()
		return nil, nil, fmt.Errorf("no preprocessed variants could be written")
	}
	return paths, cleanup, nil
}

// binarize performs a simple global threshold on a grayscale image.
func binarize(img image.Image, threshold uint8) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bb, _ := img.At(x, y).RGBA()
			gray := uint8((r + g + bb) / 3 >> 8)
			var v uint8 = 255
			if gray <= threshold {
				v = 0
			}
			out.Set(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return out
}
