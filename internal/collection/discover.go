package collection

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Discover returns the Collection* directories directly under base, sorted
// by name.
func Discover(base string) ([]string, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, fmt.Errorf("read base dir: %w", err)
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), DirPrefix) {
			dirs = append(dirs, filepath.Join(base, e.Name()))
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// ResolveDocuments maps the record's filenames onto regular files in
// docDir, in record order. Missing files and repeated names are dropped.
func ResolveDocuments(docDir string, in *Input) []string {
	seen := make(map[string]bool, len(in.Documents))
	var paths []string
	for _, d := range in.Documents {
		name := d.Filename
		if name == "" || seen[name] || name != filepath.Base(name) {
			continue
		}
		seen[name] = true
		p := filepath.Join(docDir, name)
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			paths = append(paths, p)
		}
	}
	return paths
}
