// Package archivetest builds small tarballs for tests.
package archivetest

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ulikunitz/xz"
)

// File is one member written into a fixture archive.
type File struct {
	Name     string
	Body     string
	Mode     int64
	LinkName string
}

// WriteTarGz writes files into dir/name as a gzip-compressed tarball and
// returns its path.
func WriteTarGz(t testing.TB, dir, name string, files ...File) string {
	t.Helper()
	return write(t, filepath.Join(dir, name), func(w io.Writer) (io.WriteCloser, error) {
		return gzip.NewWriter(w), nil
	}, files)
}

// WriteTarXz writes files into dir/name as an xz-compressed tarball and
// returns its path.
func WriteTarXz(t testing.TB, dir, name string, files ...File) string {
	t.Helper()
	return write(t, filepath.Join(dir, name), func(w io.Writer) (io.WriteCloser, error) {
		return xz.NewWriter(w)
	}, files)
}

func write(t testing.TB, path string, compress func(io.Writer) (io.WriteCloser, error), files []File) string {
	t.Helper()

	f, err := os.Create(path) // #nosec G304 -- test fixture
	if err != nil {
		t.Fatalf("create fixture: %v", err)
	}
	defer f.Close()

	cw, err := compress(f)
	if err != nil {
		t.Fatalf("compressor: %v", err)
	}
	tw := tar.NewWriter(cw)

	for _, file := range files {
		mode := file.Mode
		if mode == 0 {
			mode = 0o755
		}
		hdr := &tar.Header{Name: file.Name, Mode: mode, Size: int64(len(file.Body)), Typeflag: tar.TypeReg}
		if file.LinkName != "" {
			hdr = &tar.Header{Name: file.Name, Mode: mode, Typeflag: tar.TypeSymlink, Linkname: file.LinkName}
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write header %s: %v", file.Name, err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := io.WriteString(tw, file.Body); err != nil {
				t.Fatalf("write body %s: %v", file.Name, err)
			}
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if err := cw.Close(); err != nil {
		t.Fatalf("close compressor: %v", err)
	}
	return path
}
