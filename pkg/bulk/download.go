package bulk

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirDownloader saves downloads into a directory.
type DirDownloader struct {
	Dir string
	// Saved is the path of the last file written.
	Saved string
}

// Download writes data to Dir/filename, creating Dir if needed.
func (d *DirDownloader) Download(filename string, data []byte) error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}
	path := filepath.Join(d.Dir, filepath.Base(filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	d.Saved = path
	return nil
}
