// Package archive identifies compressed tar artifacts and inspects their
// contents before the tar binary unpacks them.
package archive

import (
	"fmt"
	"strings"
)

// Kind is a compressed tarball flavour.
type Kind int

// Supported archive kinds.
const (
	Unknown Kind = iota
	TarGz
	TarXz
	TarBz2
)

var extensions = []struct {
	suffix string
	kind   Kind
}{
	{".tar.gz", TarGz},
	{".tgz", TarGz},
	{".tar.xz", TarXz},
	{".txz", TarXz},
	{".tar.bz2", TarBz2},
	{".tbz2", TarBz2},
	{".tbz", TarBz2},
}

func (k Kind) String() string {
	switch k {
	case TarGz:
		return "tar.gz"
	case TarXz:
		return "tar.xz"
	case TarBz2:
		return "tar.bz2"
	default:
		return "unknown"
	}
}

// Extension returns the canonical file extension, including the leading dot.
func (k Kind) Extension() string {
	if k == Unknown {
		return ""
	}
	return "." + k.String()
}

// ParseKind converts a configured name such as "tar.gz" or "tgz" to a Kind.
func ParseKind(s string) (Kind, error) {
	if k, ok := Detect("x." + strings.TrimPrefix(strings.ToLower(s), ".")); ok {
		return k, nil
	}
	return Unknown, fmt.Errorf("unsupported archive kind %q", s)
}

// Detect determines the archive kind from a file name or URL.
func Detect(name string) (Kind, bool) {
	lower := strings.ToLower(name)
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}
	for _, e := range extensions {
		if strings.HasSuffix(lower, e.suffix) {
			return e.kind, true
		}
	}
	return Unknown, false
}

// BaseName strips the archive extension and any trailing release suffix.
// For example: "kubectl-tree_v0.4.0_linux_amd64.tar.gz" -> "kubectl-tree".
func BaseName(filename string) string {
	base := filename
	for _, e := range extensions {
		if before, ok := strings.CutSuffix(base, e.suffix); ok {
			base = before
			break
		}
	}

	if idx := strings.Index(base, "_"); idx > 0 {
		return base[:idx]
	}
	return base
}
