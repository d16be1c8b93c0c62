package textextract

import (
	"bytes"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/heic"
)

// minOCRHeight is the page height below which images are upscaled before OCR.
const minOCRHeight = 1200

// decodeImage decodes any supported image, including HEIC photos from phones.
func decodeImage(data []byte, mimeType string) (image.Image, error) {
	const op = "decodeImage"

	if isHEIC(data, mimeType) {
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, WrapExtractionError(op, ErrInvalidImage, err.Error())
		}
		return img, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, WrapExtractionError(op, ErrInvalidImage, err.Error())
	}
	return img, nil
}

// preprocess converts an image to grayscale and upscales small captures,
// returning it PNG-encoded.
func preprocess(data []byte, mimeType string) ([]byte, error) {
	img, err := decodeImage(data, mimeType)
	if err != nil {
		return nil, err
	}

	gray := imaging.Grayscale(img)
	if gray.Bounds().Dy() < minOCRHeight {
		gray = imaging.Resize(gray, 0, minOCRHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, gray, imaging.PNG); err != nil {
		return nil, WrapExtractionError("preprocess", err, "encoding PNG")
	}
	return buf.Bytes(), nil
}

// isHEIC checks the MIME type and the ftyp box brand.
func isHEIC(data []byte, mimeType string) bool {
	if strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif") {
		return true
	}
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}
