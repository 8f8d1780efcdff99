package romloader

import (
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// romArchiveExtensions are always recognized as ROM archives regardless of
// the caller's configured extension list, matching the teacher's
// always-supported archive set.
var romArchiveExtensions = []string{".zip", ".7z", ".gz", ".tar.gz", ".rar"}

// ListArchives returns the paths of every archive file directly inside
// dir (non-recursive, per spec.md §4.5's default scan mode) whose
// extension is a recognized archive format or one of extensions.
func ListArchives(dir string, extensions []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if isSupportedArchiveName(e.Name(), extensions) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}

func isSupportedArchiveName(name string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, a := range romArchiveExtensions {
		if ext == a {
			return true
		}
	}
	for _, e := range extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// CRC32OfFirstROM opens path, auto-detects its container format from magic
// bytes (falling back to extension), and streams the first matching ROM
// entry through a CRC32 hash. It never materializes an entry's full
// decompressed contents in memory — only hashReader's running checksum and
// a bounded LimitReader exist at any time, which matters at catalog scale
// where a verification pass may checksum tens of thousands of archives back
// to back. Used by the Verification Store's local fallback; the ROM scan
// worker only calls ListArchives and does not hash archives.
func CRC32OfFirstROM(path string, extensions []string) (uint32, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	header := make([]byte, 16)
	n, err := f.Read(header)
	if err != nil && err != io.EOF {
		return 0, "", fmt.Errorf("failed to read file header: %w", err)
	}
	header = header[:n]

	format := detectFormat(header, path, extensions)

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, "", fmt.Errorf("failed to seek file: %w", err)
	}

	switch format {
	case formatRaw:
		return hashReader(f, filepath.Base(path))
	case formatZIP:
		return hashFromZIP(path, extensions)
	case format7z:
		return hashFrom7z(path, extensions)
	case formatGzip:
		return hashFromGzip(path, extensions)
	case formatRAR:
		return hashFromRAR(path, extensions)
	default:
		return 0, "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// hashReader streams r through a CRC32 hash, capped at maxROMSize+1 bytes so
// an oversized entry is detected without reading it in full.
func hashReader(r io.Reader, name string) (uint32, string, error) {
	h := crc32.NewIEEE()
	n, err := io.Copy(h, io.LimitReader(r, maxROMSize+1))
	if err != nil {
		return 0, "", fmt.Errorf("failed to hash %s: %w", name, err)
	}
	if n > maxROMSize {
		return 0, "", ErrFileTooLarge
	}
	return h.Sum32(), name, nil
}
