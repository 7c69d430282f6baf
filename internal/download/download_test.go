package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/kubetree/internal/failure"
	"github.com/jmylchreest/kubetree/internal/version"
)

func allowAll(string) error { return nil }

// TestToTempFile tests a successful download.
func TestToTempFile(t *testing.T) {
	var userAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("artifact"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := New(WithTempDir(dir), WithURLPolicy(allowAll))

	path, err := d.ToTempFile(context.Background(), srv.URL+"/kubectl-tree_v0.4.0_linux_amd64.tar.gz")
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "kubetree-"))
	assert.True(t, strings.HasSuffix(path, ".tar.gz"))
	assert.Equal(t, version.UserAgent(), userAgent)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "artifact", string(data))

	second, err := d.ToTempFile(context.Background(), srv.URL+"/x.tar.gz")
	require.NoError(t, err)
	assert.NotEqual(t, path, second, "temp names must be unique")
}

// TestTimeoutWithInjectedClient tests that the timeout reaches an injected
// client in either option order and leaves the caller's client alone.
func TestTimeoutWithInjectedClient(t *testing.T) {
	shared := &http.Client{}

	before := New(WithTimeout(30*time.Second), WithHTTPClient(shared))
	after := New(WithHTTPClient(shared), WithTimeout(45*time.Second))

	assert.Equal(t, 30*time.Second, before.client.Timeout)
	assert.Equal(t, 45*time.Second, after.client.Timeout)
	assert.Zero(t, shared.Timeout, "the injected client must not be modified")

	assert.Same(t, shared, New(WithHTTPClient(shared)).client, "no timeout, no copy")
	assert.Equal(t, DefaultTimeout, New().client.Timeout)
}

// TestToTempFileHTTPError tests that non-2xx responses fail without leaving files.
func TestToTempFileHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := New(WithTempDir(dir), WithURLPolicy(allowAll))

	_, err := d.ToTempFile(context.Background(), srv.URL+"/missing.tar.gz")
	require.Error(t, err)
	assert.Equal(t, failure.KindDownload, failure.KindOf(err))
	assert.Contains(t, err.Error(), "HTTP 404")

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

// TestToTempFileTooLarge tests the size cap.
func TestToTempFileTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := New(WithTempDir(dir), WithURLPolicy(allowAll), WithMaxBytes(16))

	_, err := d.ToTempFile(context.Background(), srv.URL+"/big.tar.gz")
	require.Error(t, err)
	assert.ErrorIs(t, err, failure.ErrDownload)
	assert.Contains(t, err.Error(), "exceeds 16 bytes")

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries, "partial file must be removed")
}

// TestToTempFilePolicy tests that the default policy rejects local plain HTTP.
func TestToTempFilePolicy(t *testing.T) {
	hit := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
	}))
	defer srv.Close()

	_, err := New(WithTempDir(t.TempDir())).ToTempFile(context.Background(), srv.URL+"/a.tar.gz")
	require.Error(t, err)
	assert.Equal(t, failure.KindDownload, failure.KindOf(err))
	assert.False(t, hit, "policy must run before any request")
}

// TestToTempFileUnreachable tests connection failures.
func TestToTempFileUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := New(WithTempDir(t.TempDir()), WithURLPolicy(allowAll)).ToTempFile(context.Background(), addr+"/a.tar.gz")
	require.Error(t, err)
	assert.Equal(t, failure.KindDownload, failure.KindOf(err))
}

// TestExtension tests temp file extension selection.
func TestExtension(t *testing.T) {
	assert.Equal(t, ".tar.gz", extension("https://h/x.tgz"))
	assert.Equal(t, ".bin", extension("https://h/tool.bin?sig=1"))
	assert.Equal(t, "", extension("https://h/tool"))
}
