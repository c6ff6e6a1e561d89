package gallery

import (
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	xdraw "golang.org/x/image/draw"
)

const (
	thumbMaxEdge = 320
	thumbQuality = 80
)

// writeThumbnail renders a small jpeg next to the stored image so the
// gallery index does not have to serve full-size files.
func (s *Service) writeThumbnail(name string) error {
	src, err := os.Open(filepath.Join(s.rootDir, name))
	if err != nil {
		return fmt.Errorf("opening stored image: %w", err)
	}
	defer src.Close()

	img, _, err := image.Decode(src)
	if err != nil {
		return fmt.Errorf("decoding image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return fmt.Errorf("invalid image dimensions")
	}

	width, height := scaleDimensions(bounds.Dx(), bounds.Dy(), thumbMaxEdge)
	thumb := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(thumb, thumb.Bounds(), img, bounds, xdraw.Over, nil)

	out, err := os.Create(filepath.Join(s.ThumbsRoot(), thumbName(name)))
	if err != nil {
		return fmt.Errorf("creating thumbnail file: %w", err)
	}
	defer out.Close()

	if err := jpeg.Encode(out, thumb, &jpeg.Options{Quality: thumbQuality}); err != nil {
		return fmt.Errorf("encoding thumbnail: %w", err)
	}
	return nil
}

func thumbName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".jpg"
}

func scaleDimensions(width, height, maxEdge int) (int, int) {
	if width <= maxEdge && height <= maxEdge {
		return width, height
	}

	if width >= height {
		ratio := float64(maxEdge) / float64(width)
		scaled := int(float64(height)*ratio + 0.5)
		if scaled < 1 {
			scaled = 1
		}
		return maxEdge, scaled
	}

	ratio := float64(maxEdge) / float64(height)
	scaled := int(float64(width)*ratio + 0.5)
	if scaled < 1 {
		scaled = 1
	}
	return scaled, maxEdge
}
