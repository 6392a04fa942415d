package fcbatch

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// checksumSHA1 streams the reader through a SHA-1 digest and returns the hex
// encoded sum.
func checksumSHA1(r io.Reader) (string, error) {
	h := sha1.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to checksum data: %v", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// logRowResult uses logger to notify about a finished row.
func logRowResult(logger *zap.Logger, entry *LoadEntry) {
	logger.Info("row loaded",
		zap.Int("row", entry.Row),
		zap.String("label", entry.Label),
		zap.String("object_uri", entry.ObjectURI),
		zap.String("file_uri", entry.FileURI),
		zap.Duration("duration", entry.Duration),
	)
}
