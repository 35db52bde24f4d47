// Package archive packages generated project files into zip archives.
package archive

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Package writes the given files into a zip archive named after the task ID
// inside outputDir, creating the directory if needed. File entries are written
// in sorted order so repeated packaging of the same content produces the same
// archive layout. Returns the path of the written archive.
func Package(outputDir, taskID string, files map[string]string) (string, error) {
	if len(files) == 0 {
		return "", fmt.Errorf("no files to package for task %s", taskID)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(outputDir, taskID+".zip")
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}

	w := zip.NewWriter(f)

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		clean := sanitizeName(name)
		if clean == "" {
			continue
		}
		entry, err := w.Create(clean)
		if err != nil {
			f.Close()
			os.Remove(tmp)
			return "", fmt.Errorf("create archive entry %s: %w", clean, err)
		}
		if _, err := entry.Write([]byte(files[name])); err != nil {
			f.Close()
			os.Remove(tmp)
			return "", fmt.Errorf("write archive entry %s: %w", clean, err)
		}
	}

	if err := w.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("finalize archive: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("close archive: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("move archive into place: %w", err)
	}
	return path, nil
}

// sanitizeName strips path traversal and absolute prefixes from an entry name.
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimLeft(name, "/")
	parts := strings.Split(name, "/")
	kept := parts[:0]
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, "/")
}
