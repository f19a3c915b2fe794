// Package media checks uploaded photo bytes and renders gallery thumbnails.
package media

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
)

// ValidationError describes input the user must fix; it is shown inline and never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// accepted are the formats Thumbnail can decode.
var accepted = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// Validate returns the MIME type of data if it is a complete JPEG, PNG, GIF
// or WebP image no larger than maxBytes.
func Validate(data []byte, maxBytes int64) (string, error) {
	if len(data) == 0 {
		return "", &ValidationError{Field: "photo", Message: "no photo selected"}
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", &ValidationError{
			Field:   "photo",
			Message: fmt.Sprintf("file must be %dMB or smaller", maxBytes>>20),
		}
	}
	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), accepted...) {
		return "", &ValidationError{Field: "photo", Message: "only JPEG, PNG, GIF or WebP photos can be uploaded"}
	}
	if _, err := imaging.Decode(bytes.NewReader(data)); err != nil {
		return "", &ValidationError{Field: "photo", Message: "the photo is damaged or incomplete"}
	}
	return mt.String(), nil
}
