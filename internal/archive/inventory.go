package archive

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charlievieth/fastwalk"
)

// Entry describes one file under an extracted tree.
type Entry struct {
	Path string      `json:"path"`
	Size int64       `json:"size"`
	Mode os.FileMode `json:"mode"`
}

// Inventory lists the regular files under root, sorted by slash-separated
// relative path.
func Inventory(root string) ([]Entry, error) {
	var (
		mu      sync.Mutex
		entries []Entry
	)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}

		mu.Lock()
		entries = append(entries, Entry{Path: filepath.ToSlash(rel), Size: info.Size(), Mode: info.Mode()})
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// TotalSize sums the sizes of entries.
func TotalSize(entries []Entry) int64 {
	var total int64
	for _, e := range entries {
		total += e.Size
	}
	return total
}
