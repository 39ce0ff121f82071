package documents

import (
	"bytes"

	"github.com/disintegration/imaging"
)

// logoWidthPx keeps the embedded logo small regardless of the source image.
const logoWidthPx = 240

// LoadLogo reads an image file and returns a PNG thumbnail for the issuer header.
func LoadLogo(path string) ([]byte, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	if img.Bounds().Dx() > logoWidthPx {
		img = imaging.Resize(img, logoWidthPx, 0, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
