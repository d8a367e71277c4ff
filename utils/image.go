package utils

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DecodeImageData decodes a base64 image. s may be the raw payload or a data
// URI like "data:image/png;base64,....". The content type declared by a data
// URI is returned as is; it is "" for a raw payload.
func DecodeImageData(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, "", fmt.Errorf("empty base64 string")
	}

	contentType := ""
	if strings.HasPrefix(s, "data:") {
		if parts := strings.SplitN(s, ";base64,", 2); len(parts) == 2 {
			contentType = strings.TrimPrefix(parts[0], "data:")
			s = parts[1]
		} else if idx := strings.Index(s, ","); idx != -1 {
			s = s[idx+1:]
		}
	}

	// StdEncoding first, then the URL alphabet.
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		data, err = base64.URLEncoding.DecodeString(s)
		if err != nil {
			return nil, "", fmt.Errorf("base64 decode failed: %w", err)
		}
	}
	return data, contentType, nil
}
