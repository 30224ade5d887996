package services

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// checkPhoto returns the sniffed content type of photo, or a message describing why it is unusable.
func checkPhoto(photo []byte, maxBytes int64) (string, string) {
	if len(photo) == 0 {
		return "", "photo is required"
	}
	if int64(len(photo)) > maxBytes {
		return "", fmt.Sprintf("photo must be at most %d MB", maxBytes>>20)
	}
	contentType := strings.TrimSpace(strings.SplitN(mimetype.Detect(photo).String(), ";", 2)[0])
	if !strings.HasPrefix(contentType, "image/") {
		return "", "photo must be an image"
	}
	return contentType, ""
}
