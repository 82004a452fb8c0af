package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds a single command when the runner has none set.
const DefaultTimeout = 5 * time.Second

// ErrTimeout is wrapped into errors from commands killed by the timeout.
var ErrTimeout = errors.New("command timed out")

// Runner abstracts command execution so the wifi drivers can be unit-tested
// without touching wpa_supplicant or NetworkManager.
type Runner interface {
	Run(name string, args ...string) error
	// RunInput runs a command with stdin, keeping secrets off the argv.
	RunInput(stdin, name string, args ...string) error
	Output(name string, args ...string) (string, error)
}

// OSRunner executes commands on the host via os/exec. Every command is
// killed after Timeout.
type OSRunner struct {
	Stdout  io.Writer
	Stderr  io.Writer
	Timeout time.Duration
}

func NewOSRunner(stdout, stderr io.Writer) *OSRunner {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &OSRunner{Stdout: stdout, Stderr: stderr, Timeout: DefaultTimeout}
}

func (r *OSRunner) context() (context.Context, context.CancelFunc) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(context.Background(), timeout)
}

func (r *OSRunner) Run(name string, args ...string) error {
	return r.run(nil, name, args...)
}

func (r *OSRunner) RunInput(stdin, name string, args ...string) error {
	return r.run(strings.NewReader(stdin), name, args...)
}

func (r *OSRunner) run(stdin io.Reader, name string, args ...string) error {
	ctx, cancel := r.context()
	defer cancel()
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = r.Stdout
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w", name, ErrTimeout)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("%s: %s", err.Error(), msg)
		}
		return err
	}
	if stderr.Len() > 0 && r.Stderr != nil {
		_, _ = io.Copy(r.Stderr, &stderr)
	}
	return nil
}

func (r *OSRunner) Output(name string, args ...string) (string, error) {
	ctx, cancel := r.context()
	defer cancel()
	cmd := exec.CommandContext(ctx, name, args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%s: %w", name, ErrTimeout)
		}
		msg := strings.TrimSpace(buf.String())
		if msg == "" {
			return "", err
		}
		return "", errors.New(msg)
	}
	return strings.TrimSpace(buf.String()), nil
}
