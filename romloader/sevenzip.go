package romloader

import (
	"fmt"
	"path/filepath"

	"github.com/bodgit/sevenzip"
)

// hashFrom7z streams the first matching ROM entry in a 7z archive
// through a CRC32 hash.
func hashFrom7z(path string, extensions []string) (uint32, string, error) {
	r, err := sevenzip.OpenReader(path)
	if err != nil {
		return 0, "", fmt.Errorf("failed to open 7z: %w", err)
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
