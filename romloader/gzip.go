package romloader

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// hashFromGzip streams a gzip or tar.gz archive's matching ROM entry
// through a CRC32 hash.
func hashFromGzip(path string, extensions []string) (uint32, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "", fmt.Errorf("failed to open gzip: %w", err)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return 0, "", fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gr.Close()

	// Check if this is a tar.gz or just a .gz
	lowerPath := strings.ToLower(path)
	if strings.HasSuffix(lowerPath, ".tar.gz") || strings.HasSuffix(lowerPath, ".tgz") {
		return hashFromTar(gr, extensions)
	}

	// Plain .gz file - assume the decompressed content is the ROM.
	// Use the base name without .gz extension.
	name := filepath.Base(path)
	if strings.HasSuffix(strings.ToLower(name), ".gz") {
		name = name[:len(name)-3]
	}
	return hashReader(gr, name)
}

// hashFromTar streams the first matching ROM entry in a tar stream
// through a CRC32 hash.
func hashFromTar(r io.Reader, extensions []string) (uint32, string, error) {
	tr := tar.NewReader(r)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, "", fmt.Errorf("failed to read tar entry: %w", err)
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}
		if !isROMFile(header.Name, extensions) {
			continue
		}

		return hashReader(tr, filepath.Base(header.Name))
	}

	return 0, "", ErrNoROMFile
}
