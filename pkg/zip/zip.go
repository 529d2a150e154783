// Package zip builds downloadable archives of group photos.
package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// Photo is one archive entry.
type Photo struct {
	Filename string
	Data     []byte
}

// ArchivePhotos packs photos into a zip archive. Duplicate filenames get a
// numeric suffix so no entry silently overwrites another.
func ArchivePhotos(photos []Photo) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	seen := make(map[string]int, len(photos))
	for _, photo := range photos {
		name := photo.Filename
		if n := seen[name]; n > 0 {
			name = fmt.Sprintf("%d_%s", n, name)
		}
		seen[photo.Filename]++
		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("zip: create entry %s: %w", name, err)
		}
		if _, err := w.Write(photo.Data); err != nil {
			return nil, fmt.Errorf("zip: write entry %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: close archive: %w", err)
	}
	return buf.Bytes(), nil
}
