// Package cli drives the cf command-line session: token minting,
// authentication, targeting and traced commands whose responses are recovered
// from verbose output.
package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/fivetwenty-io/cfsync/internal/constants"
)

// Output is the captured result of one cf invocation.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Combined returns stdout followed by stderr.
func (o *Output) Combined() string {
	return string(o.Stdout) + string(o.Stderr)
}

// Runner executes the cf binary. env entries are appended to the inherited
// environment.
type Runner interface {
	Run(ctx context.Context, env []string, args ...string) (*Output, error)
}

// ExecRunner runs a real cf executable.
type ExecRunner struct {
	// Binary is the executable name or path. Empty means "cf".
	Binary string
	// Home sets CF_HOME when not empty.
	Home string
}

var _ Runner = (*ExecRunner)(nil)

// Run executes the binary and captures its output. A non-zero exit is
// reported as ErrCLICommandFailed along with the captured output.
func (r *ExecRunner) Run(ctx context.Context, env []string, args ...string) (*Output, error) {
	binary := r.Binary
	if binary == "" {
		binary = constants.DefaultCFBinary
	}

	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", constants.ErrCLINotFound, binary)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Env = append(os.Environ(), "CF_COLOR=false")

	if r.Home != "" {
		cmd.Env = append(cmd.Env, "CF_HOME="+r.Home)
	}

	cmd.Env = append(cmd.Env, env...)

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	out := &Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, ctxErr
		}

		exitErr := &exec.ExitError{}
		if errors.As(err, &exitErr) {
			out.ExitCode = exitErr.ExitCode()

			return out, fmt.Errorf("%w: exit status %d", constants.ErrCLICommandFailed, out.ExitCode)
		}

		return out, fmt.Errorf("running %s: %w", binary, err)
	}

	return out, nil
}
