package wav

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/mdobak/go-xerrors"
)

// Metadata is the subset of ffprobe's format section this package cares
// about: container-level tags (title/artist/...) and duration.
type Metadata struct {
	Format struct {
		Tags     map[string]string
		Duration float64
	}
}

// GetMetadata shells out to ffprobe for the container's format block and
// extracts tags/duration by scanning the raw JSON bytes with jsonparser
// rather than unmarshaling into a full struct tree - the only fields used
// are a handful of tag strings and one float.
func GetMetadata(path string) (Metadata, error) {
	cmd := exec.Command(
		"ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return Metadata{}, fmt.Errorf("ffprobe metadata query failed: %w", xerrors.New(err))
	}

	var meta Metadata
	meta.Format.Tags = make(map[string]string)

	if durStr, err := jsonparser.GetString(out, "format", "duration"); err == nil {
		if dur, err := strconv.ParseFloat(durStr, 64); err == nil {
			meta.Format.Duration = dur
		}
	}

	err = jsonparser.ObjectEach(out, func(key, value []byte, dataType jsonparser.ValueType, offset int) error {
		meta.Format.Tags[strings.ToLower(string(key))] = string(value)
		return nil
	}, "format", "tags")
	if err != nil && err != jsonparser.KeyPathNotFoundError {
		return meta, fmt.Errorf("parsing format tags: %w", xerrors.New(err))
	}

	return meta, nil
}
