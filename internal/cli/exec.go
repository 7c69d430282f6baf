package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/kubetree/internal/process"
	"github.com/jmylchreest/kubetree/internal/shell"
	"github.com/jmylchreest/kubetree/internal/tools"
)

func newExecCommand(a *app) *cobra.Command {
	var (
		stream  bool
		timeout time.Duration
		dir     string
	)

	cmd := &cobra.Command{
		Use:   "exec [flags] -- <command line>",
		Short: "Run a command with the managed tools on PATH",
		Long: `Run a command line through the platform shell with every managed tool
directory prepended to PATH. In WSL mode the line runs inside WSL.

Without --stream the output is collected and printed when the command ends,
and a missing kubectl-tree plugin is installed on demand.`,
		Example: `  kubetree exec -- kubectl tree -A deployment web
  kubetree exec --stream --timeout 30s -- kubectl get pods -w`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			line := strings.Join(args, " ")
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			var opts []shell.ExecOption
			if dir != "" {
				opts = append(opts, shell.WithDir(dir))
			}

			var (
				res shell.Result
				err error
			)
			if stream {
				res, err = a.stream(ctx, line, opts...)
			} else {
				orch, oerr := a.orchestrator(tools.KubectlTreeName)
				if oerr != nil {
					return oerr
				}
				res, err = orch.Run(ctx, line, opts...)
				if err == nil {
					fmt.Fprint(a.stdout, res.Stdout)
					fmt.Fprint(a.stderr, res.Stderr)
				}
			}
			if err != nil {
				return err
			}
			if !res.Succeeded() {
				return &exitError{code: res.ExitCode}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&stream, "stream", false, "stream output while the command runs")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "stop the command after this long")
	cmd.Flags().StringVar(&dir, "dir", "", "working directory for the command")
	return cmd
}

// stream runs line with output going straight to the terminal. An interrupt
// terminates the child and a second one kills it.
func (a *app) stream(ctx context.Context, line string, opts ...shell.ExecOption) (shell.Result, error) {
	executor := a.executor.With(shell.WithOutput(a.stdout, a.stderr))

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt)
	defer signal.Stop(signals)

	return executor.ExecStreaming(ctx, line, func(h *process.Handle) {
		a.logger.Debug("started", "pid", h.PID())
		go func() {
			interrupts := 0
			for {
				select {
				case <-h.Done():
					return
				case <-signals:
					interrupts++
					if interrupts == 1 {
						_ = h.Terminate()
					} else {
						_ = h.Kill()
					}
				}
			}
		}()
	}, opts...)
}
