// Package notify delivers user-facing messages.
package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// Notifier shows short messages to the user.
type Notifier interface {
	Info(msg string)
	Error(msg string)
}

// Console writes notices to a terminal, coloured when enabled.
type Console struct {
	out     io.Writer
	info    func(a ...any) string
	errorFn func(a ...any) string
	mu      sync.Mutex
}

// NewConsole creates a Console writing to out. Colour follows fatih/color's
// terminal detection unless noColor is set.
func NewConsole(out io.Writer, noColor bool) *Console {
	infoColor := color.New(color.FgCyan)
	errColor := color.New(color.FgRed, color.Bold)
	if noColor {
		infoColor.DisableColor()
		errColor.DisableColor()
	}
	return &Console{
		out:     out,
		info:    infoColor.SprintFunc(),
		errorFn: errColor.SprintFunc(),
	}
}

// Info writes an informational notice.
func (c *Console) Info(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, c.info("info:"), msg)
}

// Error writes an error notice.
func (c *Console) Error(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, c.errorFn("error:"), msg)
}

// Notice is one recorded message.
type Notice struct {
	Level string
	Text  string
}

// Recorder keeps notices in memory.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

// Info records an informational notice.
func (r *Recorder) Info(msg string) { r.add("info", msg) }

// Error records an error notice.
func (r *Recorder) Error(msg string) { r.add("error", msg) }

func (r *Recorder) add(level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, Notice{Level: level, Text: msg})
}

// Notices returns a copy of everything recorded so far.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Discard drops every notice.
type Discard struct{}

// Info does nothing.
func (Discard) Info(string) {}

// Error does nothing.
func (Discard) Error(string) {}
