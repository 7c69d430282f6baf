//go:build windows

package process

import (
	"context"
	"os/exec"
	"syscall"
)

// shellCommand runs line through cmd.exe. The raw command line is set
// directly because cmd does not follow the MSVC argument quoting rules that
// exec applies by default.
func shellCommand(ctx context.Context, line string) *exec.Cmd {
	c := exec.CommandContext(ctx, "cmd.exe") // #nosec G204 -- callers own the command line
	c.SysProcAttr = &syscall.SysProcAttr{
		CmdLine: `cmd.exe /S /C "` + line + `"`,
	}
	return c
}
