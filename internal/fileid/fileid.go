// Package fileid provides deterministic document IDs and content hashes for
// manifest files.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const prefix = "file:"

// FileDocID returns a stable document ID for the given absolute path.
// Same path always yields the same ID. Used when a manifest entry carries no
// explicit id.
func FileDocID(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized))
	return prefix + hex.EncodeToString(hash[:])
}

// ContentHash returns the hex SHA-256 of the file's contents, streaming so
// large documents do not load into memory. Sync compares it against the
// recorded state to detect changed documents.
func ContentHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for hashing: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
