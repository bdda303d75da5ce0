package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// GenerateCode returns n random bytes hex encoded.
func GenerateCode(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("code length must be positive")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashToken is how one-time tokens are stored at rest.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ImageObjectName builds `<random-token>-<epoch-ms>.<ext>` for an uploaded
// file. The extension follows the sniffed content type; the filename only
// counts when the type has no known extension.
func ImageObjectName(filename, contentType string, now time.Time) (string, error) {
	token, err := GenerateCode(8)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d.%s", token, now.UnixMilli(), imageExtension(filename, contentType)), nil
}

func imageExtension(filename, contentType string) string {
	if detected := mimetype.Lookup(contentType); detected != nil && detected.Extension() != "" {
		return strings.TrimPrefix(detected.Extension(), ".")
	}
	if ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")); ext != "" {
		return ext
	}
	return "bin"
}
