// Package utils collects small helpers shared across the CLI, HTTP, and
// fingerprinting packages: id/key generation, filesystem helpers, and env
// lookups.
package utils

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mdobak/go-xerrors"
)

// GenerateUniqueID returns a random 32-bit id drawn from crypto/rand, used
// both as a song's persisted surrogate key and as a throwaway tag for a
// query fingerprint set. Uniqueness is not checked against existing ids.
func GenerateUniqueID() uint32 {
	var b [4]byte
	rand.Read(b[:])
	random := binary.LittleEndian.Uint32(b[:])
	return random
}

// GenerateSongKey builds a deduplication key from title+artist so the same
// recording isn't indexed twice under cosmetic title variations.
func GenerateSongKey(title, artist string) string {
	key := strings.ToLower(strings.TrimSpace(title + "-" + artist))
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "'", "")
	key = strings.ReplaceAll(key, "\"", "")
	key = strings.ReplaceAll(key, "&", "and")
	return key
}

// CreateFolder is a no-op if dir already exists.
func CreateFolder(dir string) error {
	if _, err := os.Stat(dir); err == nil {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// MoveFile renames src to dst, falling back to copy+remove when they live on
// different filesystems (os.Rename returns EXDEV in that case).
func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		slog.Default().Error("open source file for move", slog.Any("error", xerrors.New(err)))
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}

	return os.Remove(src)
}

// GetEnv reads an environment variable, returning def when unset or empty.
func GetEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// ExtendMap merges src into dst in place, src entries winning on key
// collision.
func ExtendMap[K comparable, V any](dst, src map[K]V) {
	for k, v := range src {
		dst[k] = v
	}
}
