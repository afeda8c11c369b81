package storage

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/disintegration/imaging"
)

var imageFormats = map[string]imaging.Format{
	"image/jpeg": imaging.JPEG,
	"image/png":  imaging.PNG,
	"image/gif":  imaging.GIF,
}

// ProcessImage decodes data with EXIF orientation applied, scales it down to maxWidth when
// wider and re-encodes it in its own format. It returns the encoded bytes and content type.
// Animated GIFs are kept as they are so the animation survives.
func ProcessImage(data []byte, maxWidth int) ([]byte, string, error) {
	contentType := http.DetectContentType(data)
	format, ok := imageFormats[contentType]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedImage, contentType)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	if format == imaging.GIF {
		return data, contentType, nil
	}

	width := img.Bounds().Dx()
	if maxWidth > 0 && width > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
		storageLogger.Debug().Int("from", width).Int("to", maxWidth).Msg("Image downscaled")
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(90)); err != nil {
		return nil, "", fmt.Errorf("error encoding image: %w", err)
	}
	return buf.Bytes(), contentType, nil
}
