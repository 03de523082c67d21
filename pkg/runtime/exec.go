package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/coney-io/coney/pkg/metrics"
)

// commandResult captures the outcome of one OCI runtime invocation.
// A non-zero exit is not an error at this layer: callers classify the
// stderr text to decide whether the failure is ignorable.
type commandResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

func (c *commandResult) success() bool { return c.ExitCode == 0 }

func (c *commandResult) stderrString() string {
	return string(bytes.TrimSpace(c.Stderr))
}

// execRuntime invokes the OCI runtime binary with the given arguments
// plus the fixed --root flag, bounded by the configured command
// timeout. On timeout the process is killed and a TimeoutError is
// returned. The timeout is a hard ceiling applied uniformly to every
// invocation; longer-running work (image pulls) must not route
// through this path.
func (r *CLIRuntime) execRuntime(ctx context.Context, args ...string) (*commandResult, error) {
	cmdLine := fmt.Sprintf("%s %s", r.cfg.RuntimeBinary, strings.Join(args, " "))
	r.logger.Debug().Str("command", cmdLine).Msg("executing runtime command")

	subcommand := args[0]
	start := time.Now()
	metrics.RuntimeCommandsTotal.WithLabelValues(subcommand).Inc()

	ctx, cancel := context.WithTimeout(ctx, r.cfg.CommandTimeout)
	defer cancel()

	full := append(args, "--root", r.cfg.StateRoot)
	cmd := exec.CommandContext(ctx, r.cfg.RuntimeBinary, full...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	metrics.RuntimeCommandDuration.WithLabelValues(subcommand).Observe(time.Since(start).Seconds())

	if ctx.Err() == context.DeadlineExceeded {
		metrics.RuntimeCommandErrorsTotal.WithLabelValues(subcommand).Inc()
		return nil, &TimeoutError{Command: cmdLine}
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Non-zero exit: hand the output back for classification
			return &commandResult{
				Stdout:   stdout.Bytes(),
				Stderr:   stderr.Bytes(),
				ExitCode: exitErr.ExitCode(),
			}, nil
		}
		metrics.RuntimeCommandErrorsTotal.WithLabelValues(subcommand).Inc()
		return nil, fmt.Errorf("failed to run %s: %w", cmdLine, err)
	}

	return &commandResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: 0,
	}, nil
}

// verifyBinary checks that the OCI runtime binary is present and
// answers --version. Called once during engine construction.
func verifyBinary(binary string) (string, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return "", &BinaryNotFoundError{Binary: binary, Err: err}
	}

	out, err := exec.Command(path, "--version").Output()
	if err != nil {
		return "", &BinaryNotFoundError{Binary: binary, Err: err}
	}

	return strings.TrimSpace(string(out)), nil
}
