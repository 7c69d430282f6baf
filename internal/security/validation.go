// Package security holds the guards applied to downloaded tool archives: the
// URL policy, archive entry validation and read limits.
package security

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// ErrLimitExceeded is returned by LimitedReader once the byte budget is spent.
var ErrLimitExceeded = errors.New("read size limit exceeded")

// ValidateHTTPURL validates a release artifact URL for download.
// Only allows HTTPS from non-local hosts.
func ValidateHTTPURL(urlStr string) error {
	if urlStr == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if !strings.EqualFold(parsed.Scheme, "https") {
		return fmt.Errorf("only HTTPS URLs are allowed (got %s)", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("URL must have a hostname")
	}

	// Block localhost and private IPs to prevent SSRF
	host := strings.ToLower(parsed.Hostname())
	if isLocalOrPrivateHost(host) {
		return fmt.Errorf("URL cannot point to local or private hosts: %s", host)
	}

	return nil
}

// ValidateArchiveEntry rejects archive member names that would land outside
// the extraction directory once tar writes them.
func ValidateArchiveEntry(name string) error {
	if name == "" {
		return fmt.Errorf("empty entry name")
	}

	slashed := filepath.ToSlash(name)
	if strings.HasPrefix(slashed, "/") || filepath.IsAbs(name) || hasDriveLetter(slashed) {
		return fmt.Errorf("absolute path in archive: %s", name)
	}

	for _, part := range strings.Split(slashed, "/") {
		if part == ".." {
			return fmt.Errorf("entry %s contains directory traversal (..)", name)
		}
	}

	return nil
}

// ValidateLinkTarget checks that a symlink or hardlink entry points inside
// the extraction directory.
func ValidateLinkTarget(name, target string) error {
	if target == "" {
		return fmt.Errorf("link %s has no target", name)
	}
	slashed := filepath.ToSlash(target)
	if strings.HasPrefix(slashed, "/") || hasDriveLetter(slashed) {
		return fmt.Errorf("link %s points to absolute path %s", name, target)
	}

	// Resolve relative to the link's own directory.
	joined := path.Clean(path.Join(path.Dir(filepath.ToSlash(name)), slashed))
	if joined == ".." || strings.HasPrefix(joined, "../") {
		return fmt.Errorf("link %s escapes the archive root via %s", name, target)
	}
	return nil
}

// ValidateWithin ensures path is baseDir or lives below it.
func ValidateWithin(p, baseDir string) error {
	if p == "" {
		return fmt.Errorf("empty path")
	}

	absPath, err := filepath.Abs(filepath.Clean(p))
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	absBase, err := filepath.Abs(filepath.Clean(baseDir))
	if err != nil {
		return fmt.Errorf("invalid base directory: %w", err)
	}

	if absPath != absBase && !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return fmt.Errorf("%s is outside %s", p, baseDir)
	}
	return nil
}

func hasDriveLetter(p string) bool {
	return len(p) >= 2 && p[1] == ':' &&
		((p[0] >= 'a' && p[0] <= 'z') || (p[0] >= 'A' && p[0] <= 'Z'))
}

// LimitedReader wraps an io.Reader and limits the total bytes that can be read.
// Unlike io.LimitReader it returns ErrLimitExceeded rather than io.EOF.
type LimitedReader struct {
	R         io.Reader
	Remaining int64
}

// Read implements io.Reader with size limits.
func (l *LimitedReader) Read(p []byte) (int, error) {
	if l.Remaining <= 0 {
		return 0, ErrLimitExceeded
	}
	if int64(len(p)) > l.Remaining {
		p = p[:l.Remaining]
	}
	n, err := l.R.Read(p)
	l.Remaining -= int64(n)
	return n, err
}

// NewLimitedReader creates a new LimitedReader with the specified size limit.
func NewLimitedReader(r io.Reader, maxBytes int64) *LimitedReader {
	return &LimitedReader{
		R:         r,
		Remaining: maxBytes,
	}
}

// isLocalOrPrivateHost checks if a hostname is localhost or a private,
// loopback or link-local address.
func isLocalOrPrivateHost(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}

	ip := net.ParseIP(strings.Trim(host, "[]"))
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}
