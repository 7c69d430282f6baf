// Package download fetches release artifacts into temporary files.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/kubetree/internal/archive"
	"github.com/jmylchreest/kubetree/internal/failure"
	"github.com/jmylchreest/kubetree/internal/security"
	"github.com/jmylchreest/kubetree/internal/version"
)

const (
	// DefaultTimeout is the default overall download timeout.
	DefaultTimeout = 5 * time.Minute

	// DefaultMaxBytes caps the size of a downloaded artifact.
	DefaultMaxBytes = 200 * 1024 * 1024

	// TempPrefix starts every temp file name.
	TempPrefix = "kubetree-"
)

// Downloader writes remote artifacts to uniquely named temp files.
type Downloader struct {
	client   *http.Client
	tempDir  string
	maxBytes int64
	policy   func(string) error
	headers  map[string]string
	timeout  time.Duration
	logger   hclog.Logger
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Downloader) { d.client = client }
}

// WithTimeout sets the overall request timeout. It applies to the client
// given by WithHTTPClient too, in either order, without modifying it.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Downloader) { d.timeout = timeout }
}

// WithTempDir sets the directory temp files are created in.
func WithTempDir(dir string) Option {
	return func(d *Downloader) { d.tempDir = dir }
}

// WithMaxBytes sets the size cap.
func WithMaxBytes(n int64) Option {
	return func(d *Downloader) { d.maxBytes = n }
}

// WithURLPolicy replaces security.ValidateHTTPURL as the URL check. A nil
// policy accepts every URL.
func WithURLPolicy(policy func(string) error) Option {
	return func(d *Downloader) { d.policy = policy }
}

// WithHeaders adds request headers.
func WithHeaders(headers map[string]string) Option {
	return func(d *Downloader) { d.headers = headers }
}

// WithLogger sets the logger.
func WithLogger(logger hclog.Logger) Option {
	return func(d *Downloader) { d.logger = logger }
}

// New creates a Downloader.
func New(opts ...Option) *Downloader {
	d := &Downloader{
		client:   &http.Client{Timeout: DefaultTimeout},
		tempDir:  os.TempDir(),
		maxBytes: DefaultMaxBytes,
		policy:   security.ValidateHTTPURL,
		logger:   hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.timeout > 0 {
		c := *d.client
		c.Timeout = d.timeout
		d.client = &c
	}
	d.logger = d.logger.Named("download")
	return d
}

// ToTempFile downloads rawURL into a new temp file and returns its path. The
// caller owns the file. On failure nothing is left behind and the error is a
// DownloadFailure.
func (d *Downloader) ToTempFile(ctx context.Context, rawURL string) (string, error) {
	if d.policy != nil {
		if err := d.policy(rawURL); err != nil {
			return "", downloadError(err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", downloadError(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", version.UserAgent())
	for key, value := range d.headers {
		req.Header.Set(key, value)
	}

	d.logger.Debug("downloading", "url", rawURL)
	resp, err := d.client.Do(req)
	if err != nil {
		return "", downloadError(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", downloadError(fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status))
	}

	dest := filepath.Join(d.tempDir, TempPrefix+uuid.New().String()+extension(rawURL))
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600) // #nosec G304 -- name is generated here
	if err != nil {
		return "", downloadError(fmt.Errorf("failed to create temp file: %w", err))
	}

	n, copyErr := io.Copy(f, security.NewLimitedReader(resp.Body, d.maxBytes))
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(dest)
		if errors.Is(err, security.ErrLimitExceeded) {
			return "", downloadError(fmt.Errorf("artifact exceeds %d bytes", d.maxBytes))
		}
		return "", downloadError(fmt.Errorf("failed to write temp file: %w", err))
	}

	d.logger.Debug("downloaded", "url", rawURL, "path", dest, "bytes", n)
	return dest, nil
}

func downloadError(err error) error {
	return failure.Wrap(failure.KindDownload, "", err)
}

// extension keeps the artifact's extension so tools that sniff file names
// still recognise the temp file.
func extension(rawURL string) string {
	if k, ok := archive.Detect(rawURL); ok {
		return k.Extension()
	}
	if u, err := url.Parse(rawURL); err == nil {
		return path.Ext(u.Path)
	}
	return ""
}
