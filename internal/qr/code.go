package qr

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/skip2/go-qrcode"
)

const dataURLPrefix = "data:image/png;base64,"

// PNG renders content as a QR code image.
func PNG(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(content, qrcode.Medium, size)
}

// DataURL renders content as a PNG data URL for embedding in stored items.
func DataURL(content string) (string, error) {
	png, err := PNG(content, 256)
	if err != nil {
		return "", err
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(png), nil
}

// Encode marshals a payload and renders it as a data URL. The raw text is
// returned too so callers can persist it alongside the image.
func Encode(p Payload) (dataURL, raw string, err error) {
	raw, err = MarshalPayload(p)
	if err != nil {
		return "", "", err
	}
	dataURL, err = DataURL(raw)
	if err != nil {
		return "", "", err
	}
	return dataURL, raw, nil
}

// decodeDataURL returns the image bytes of a PNG data URL.
func decodeDataURL(dataURL string) ([]byte, error) {
	if !strings.HasPrefix(dataURL, dataURLPrefix) {
		return nil, errors.New("qr: not a png data url")
	}
	return base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, dataURLPrefix))
}
