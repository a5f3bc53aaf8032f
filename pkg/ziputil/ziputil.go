// Package ziputil bundles a run's media files into a single zip archive for
// download.
package ziputil

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// Asset is one named file to include in an archive.
type Asset struct {
	Filename string
	Data     []byte
}

// Archive writes the assets into an in-memory zip and returns its bytes.
func Archive(assets []Asset) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, asset := range assets {
		w, err := zw.Create(asset.Filename)
		if err != nil {
			return nil, fmt.Errorf("ziputil: create entry %q: %w", asset.Filename, err)
		}
		if _, err := w.Write(asset.Data); err != nil {
			return nil, fmt.Errorf("ziputil: write entry %q: %w", asset.Filename, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("ziputil: finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}
