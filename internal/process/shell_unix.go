//go:build !windows

package process

import (
	"context"
	"os/exec"
)

// shellCommand runs line through /bin/sh so pipes, quoting and variable
// expansion behave as they would in a terminal.
func shellCommand(ctx context.Context, line string) *exec.Cmd {
	return exec.CommandContext(ctx, "/bin/sh", "-c", line) // #nosec G204 -- callers own the command line
}
