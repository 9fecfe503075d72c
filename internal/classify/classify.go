// Package classify turns clip file names into (group key, submitter) pairs
// and groups a directory of clips by recipient.
package classify

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Delimiter separates the name parts of a clip file name:
// recipientfirst_recipientlast_submitter.ext
const Delimiter = "_"

// minParts is the number of delimiter-separated parts a classifiable name needs.
const minParts = 3

// ErrNotClassifiable is returned when a file name does not carry a group key
// and a submitter label.
var ErrNotClassifiable = errors.New("classify: file name not classifiable")

// videoExtensions lists the accepted container extensions (lowercase, with dot).
var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
	".m4v":  true,
	".wmv":  true,
	".flv":  true,
}

// Clip is a classified input file. Later stages pass copies whose Path
// points at the derived file; the classification fields never change.
type Clip struct {
	// Path is the full path to the source file.
	Path string
	// Name is the base file name including extension.
	Name string
	// GroupKey identifies the recipient, e.g. "jane_doe".
	GroupKey string
	// Submitter is the label of the contributor, e.g. "emma".
	Submitter string
}

// IsVideoFile reports whether name has one of the accepted video extensions.
// The comparison is case-insensitive.
func IsVideoFile(name string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(name))]
}

// Parse splits a file name into its group key and submitter label.
//
// The extension is stripped and the base name split on Delimiter. The first two
// parts form the group key; everything after them, rejoined with Delimiter,
// is the submitter label. Names with fewer than three parts return
// ErrNotClassifiable.
func Parse(name string) (groupKey, submitter string, err error) {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	parts := strings.Split(base, Delimiter)
	if len(parts) < minParts {
		return "", "", fmt.Errorf("%w: %q has %d parts", ErrNotClassifiable, name, len(parts))
	}

	groupKey = parts[0] + Delimiter + parts[1]
	submitter = strings.Join(parts[2:], Delimiter)
	return groupKey, submitter, nil
}

// NewClip classifies the file at path.
func NewClip(path string) (Clip, error) {
	name := filepath.Base(path)
	key, submitter, err := Parse(name)
	if err != nil {
		return Clip{}, err
	}
	return Clip{
		Path:      path,
		Name:      name,
		GroupKey:  key,
		Submitter: submitter,
	}, nil
}
