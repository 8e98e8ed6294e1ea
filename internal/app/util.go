package app

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"
)

// Key purposes for Key32. Each one derives an independent key from the same
// secret.
const (
	KeyCSRF    = "csrf"
	KeySession = "session"
)

// Key32 derives a 32-byte key for purpose from a configured secret with
// HKDF-SHA256. An empty secret yields a random key, which only lives as long
// as the process.
func Key32(secret, purpose string) ([]byte, error) {
	key := make([]byte, 32)
	if secret == "" {
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		return key, nil
	}
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(Name+"-"+purpose+"-v1"))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", purpose, err)
	}
	return key, nil
}

// IsTruthy reports whether s is one of true, 1, t, yes, y (any case).
func IsTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "t", "yes", "y":
		return true
	}
	return false
}

// AtomicWriteFile writes to a temp file next to path and renames it in place.
func AtomicWriteFile(path string, perm os.FileMode, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.tmp.%d", filepath.Base(path), time.Now().UnixNano()))
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Mask hides the middle of s for log output.
func Mask(s string) string {
	if s == "" {
		return ""
	}
	r := []rune(s)
	if len(r) <= 6 {
		return "***"
	}
	return string(r[:2]) + strings.Repeat("*", min(len(r)-4, 8)) + string(r[len(r)-2:])
}
