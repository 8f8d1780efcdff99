package romloader

import (
	"archive/zip"
	"fmt"
	"path/filepath"
)

// hashFromZIP streams the first matching ROM entry in a ZIP archive
// through a CRC32 hash.
func hashFromZIP(path string, extensions []string) (uint32, string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return 0, "", fmt.Errorf("failed to open zip: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if !isROMFile(f.Name, extensions) {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return 0, "", fmt.Errorf("failed to open %s in archive: %w", f.Name, err)
		}
		defer rc.Close()

		return hashReader(rc, filepath.Base(f.Name))
	}

	return 0, "", ErrNoROMFile
}
