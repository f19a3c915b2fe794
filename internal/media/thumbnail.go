package media

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
	_ "golang.org/x/image/webp"
)

var (
	captionFont     *truetype.Font
	captionFontErr  error
	captionFontOnce sync.Once
)

func loadFont() (*truetype.Font, error) {
	captionFontOnce.Do(func() {
		captionFont, captionFontErr = freetype.ParseFont(goregular.TTF)
	})
	return captionFont, captionFontErr
}

// Thumbnail center-crops data to a size×size JPEG. A non-empty caption is
// drawn on a dark band along the bottom edge.
func Thumbnail(data []byte, size int, caption string) ([]byte, error) {
	const op = "media.Thumbnail"

	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	thumb := imaging.Fill(src, size, size, imaging.Center, imaging.Lanczos)
	if caption != "" {
		if err := drawCaption(thumb, caption); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return buf.Bytes(), nil
}

func drawCaption(dst *image.NRGBA, caption string) error {
	f, err := loadFont()
	if err != nil {
		return err
	}

	b := dst.Bounds()
	fontSize := float64(b.Dy()) / 14
	if fontSize < 8 {
		fontSize = 8
	}
	band := int(fontSize * 1.8)
	bandRect := image.Rect(b.Min.X, b.Max.Y-band, b.Max.X, b.Max.Y)
	draw.Draw(dst, bandRect, image.NewUniform(color.NRGBA{A: 140}), image.Point{}, draw.Over)

	c := freetype.NewContext()
	c.SetDPI(72)
	c.SetFont(f)
	c.SetFontSize(fontSize)
	c.SetClip(b)
	c.SetDst(dst)
	c.SetSrc(image.White)
	_, err = c.DrawString(caption, freetype.Pt(b.Min.X+int(fontSize/2), b.Max.Y-int(fontSize/2)))
	return err
}
