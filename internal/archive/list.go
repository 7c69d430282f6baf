package archive

import (
	"archive/tar"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/ulikunitz/xz"

	"github.com/jmylchreest/kubetree/internal/security"
)

// MaxUnpackedSize bounds the decompressed stream read while listing.
const MaxUnpackedSize = 512 * 1024 * 1024

// Entry is one member of a tarball.
type Entry struct {
	Name     string
	Size     int64
	Mode     os.FileMode
	Dir      bool
	LinkName string
}

// Executable reports whether any execute bit is set.
func (e Entry) Executable() bool {
	return !e.Dir && e.Mode&0o111 != 0
}

// List reads every header of the archive at path. It fails on the first entry
// whose name or link target would escape the extraction directory, so a
// malicious artifact is rejected before tar ever sees it.
func List(file string, kind Kind) ([]Entry, error) {
	f, err := os.Open(file) // #nosec G304 -- path is a temp file we created
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	stream, closeStream, err := decompressor(f, kind)
	if err != nil {
		return nil, err
	}
	defer closeStream()

	tr := tar.NewReader(security.NewLimitedReader(stream, MaxUnpackedSize))

	var entries []Entry
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read tar archive: %w", err)
		}

		if err := security.ValidateArchiveEntry(header.Name); err != nil {
			return nil, err
		}
		if header.Typeflag == tar.TypeSymlink || header.Typeflag == tar.TypeLink {
			if err := security.ValidateLinkTarget(header.Name, header.Linkname); err != nil {
				return nil, err
			}
		}

		entries = append(entries, Entry{
			Name:     header.Name,
			Size:     header.Size,
			Mode:     header.FileInfo().Mode(),
			Dir:      header.Typeflag == tar.TypeDir,
			LinkName: header.Linkname,
		})
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("no files found in archive")
	}
	return entries, nil
}

func decompressor(r io.Reader, kind Kind) (io.Reader, func(), error) {
	switch kind {
	case TarGz:
		gzr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return gzr, func() { _ = gzr.Close() }, nil
	case TarXz:
		xzr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		return xzr, func() {}, nil
	case TarBz2:
		return bzip2.NewReader(r), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported archive kind %s", kind)
	}
}

// Contains reports whether entries include a regular file whose base name
// is binary, in any directory.
func Contains(entries []Entry, binary string) bool {
	for _, e := range entries {
		if !e.Dir && path.Base(e.Name) == binary {
			return true
		}
	}
	return false
}
