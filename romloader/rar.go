package romloader

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/nwaples/rardecode/v2"
)

// hashFromRAR streams the first matching ROM entry in a RAR archive
// through a CRC32 hash.
func hashFromRAR(path string, extensions []string) (uint32, string, error) {
	r, err := rardecode.OpenReader(path)
	if err != nil {
		return 0, "", fmt.Errorf("failed to open rar: %w", err)
	}
	defer r.Close()

	for {
		header, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, "", fmt.Errorf("failed to read rar entry: %w", err)
		}

		if header.IsDir {
			continue
		}
		if !isROMFile(header.Name, extensions) {
			continue
		}

		return hashReader(r, filepath.Base(header.Name))
	}

	return 0, "", ErrNoROMFile
}
