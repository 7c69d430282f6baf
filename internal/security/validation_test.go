package security

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
)

// TestValidateHTTPURL tests the download URL policy.
func TestValidateHTTPURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"release asset", "https://github.com/ahmetb/kubectl-tree/releases/download/v0.4.0/kubectl-tree_v0.4.0_linux_amd64.tar.gz", false},
		{"empty", "", true},
		{"plain http", "http://github.com/x.tar.gz", true},
		{"no host", "https:///x.tar.gz", true},
		{"localhost", "https://localhost/x.tar.gz", true},
		{"loopback", "https://127.0.0.1:8443/x.tar.gz", true},
		{"private", "https://10.1.2.3/x.tar.gz", true},
		{"private 172", "https://172.20.0.1/x.tar.gz", true},
		{"link local", "https://169.254.169.254/latest", true},
		{"ipv6 loopback", "https://[::1]/x", true},
		{"public ip", "https://140.82.112.3/x.tar.gz", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHTTPURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateHTTPURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

// TestValidateArchiveEntry tests archive member name checks.
func TestValidateArchiveEntry(t *testing.T) {
	tests := []struct {
		name    string
		entry   string
		wantErr bool
	}{
		{"plain", "kubectl-tree", false},
		{"nested", "bin/kubectl-tree", false},
		{"dotted name", "LICENSE..txt", false},
		{"traversal", "../evil", true},
		{"nested traversal", "a/../../evil", true},
		{"absolute", "/etc/passwd", true},
		{"drive", `C:\evil`, true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArchiveEntry(tt.entry)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateArchiveEntry(%q) error = %v, wantErr %v", tt.entry, err, tt.wantErr)
			}
		})
	}
}

// TestValidateLinkTarget tests symlink target checks.
func TestValidateLinkTarget(t *testing.T) {
	if err := ValidateLinkTarget("bin/kubectl-tree", "../kubectl-tree-0.4.0"); err != nil {
		t.Errorf("link inside root rejected: %v", err)
	}
	if err := ValidateLinkTarget("kubectl-tree", "../../bin/sh"); err == nil {
		t.Error("link escaping root accepted")
	}
	if err := ValidateLinkTarget("kubectl-tree", "/bin/sh"); err == nil {
		t.Error("absolute link accepted")
	}
}

// TestValidateWithin tests directory containment.
func TestValidateWithin(t *testing.T) {
	base := t.TempDir()

	if err := ValidateWithin(filepath.Join(base, "tools", "kubectl-tree"), base); err != nil {
		t.Errorf("nested path rejected: %v", err)
	}
	if err := ValidateWithin(base, base); err != nil {
		t.Errorf("base itself rejected: %v", err)
	}
	if err := ValidateWithin(filepath.Join(base, "..", "other"), base); err == nil {
		t.Error("sibling path accepted")
	}
}

// TestLimitedReader tests that reads past the budget fail.
func TestLimitedReader(t *testing.T) {
	r := NewLimitedReader(strings.NewReader("0123456789"), 4)

	got, err := io.ReadAll(r)
	if !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded, got %v", err)
	}
	if string(got) != "0123" {
		t.Errorf("read %q before limit, want 0123", got)
	}

	r = NewLimitedReader(strings.NewReader("abc"), 10)
	got, err = io.ReadAll(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "abc" {
		t.Errorf("got %q, want abc", got)
	}
}
