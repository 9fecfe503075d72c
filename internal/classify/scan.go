package classify

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Groups maps group keys to their clips. Keys keep first-seen order.
type Groups struct {
	keys  []string
	clips map[string][]Clip
}

// NewGroups builds Groups from clips. Within each group clips are ordered by
// submitter label ascending; ties are broken by file name.
func NewGroups(clips []Clip) *Groups {
	g := &Groups{clips: make(map[string][]Clip)}
	for _, c := range clips {
		if _, ok := g.clips[c.GroupKey]; !ok {
			g.keys = append(g.keys, c.GroupKey)
		}
		g.clips[c.GroupKey] = append(g.clips[c.GroupKey], c)
	}
	for key := range g.clips {
		list := g.clips[key]
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].Submitter != list[j].Submitter {
				return list[i].Submitter < list[j].Submitter
			}
			return list[i].Name < list[j].Name
		})
	}
	return g
}

// Len returns the number of groups.
func (g *Groups) Len() int {
	return len(g.keys)
}

// Keys returns the group keys in first-seen order.
func (g *Groups) Keys() []string {
	return append([]string(nil), g.keys...)
}

// SortedKeys returns the group keys in lexicographic order.
func (g *Groups) SortedKeys() []string {
	keys := g.Keys()
	sort.Strings(keys)
	return keys
}

// Clips returns a copy of the ordered clips of a group.
func (g *Groups) Clips(key string) []Clip {
	return append([]Clip(nil), g.clips[key]...)
}

// ScanResult is the outcome of scanning an input directory.
type ScanResult struct {
	Groups *Groups
	// Unclassified holds video file names that did not match the naming scheme.
	Unclassified []string
}

// Scan lists dir (non-recursively), keeps video files and classifies them.
// Files without a video extension are skipped silently; video files whose
// names cannot be classified are reported in Unclassified.
func Scan(dir string) (*ScanResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}

	var (
		clips        []Clip
		unclassified []string
	)
	for _, entry := range entries {
		if entry.IsDir() || !IsVideoFile(entry.Name()) {
			continue
		}
		clip, err := NewClip(filepath.Join(dir, entry.Name()))
		if err != nil {
			unclassified = append(unclassified, entry.Name())
			continue
		}
		clips = append(clips, clip)
	}

	return &ScanResult{
		Groups:       NewGroups(clips),
		Unclassified: unclassified,
	}, nil
}
