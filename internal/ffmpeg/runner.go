package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Error wraps a failed ffmpeg invocation with its arguments and stderr.
type Error struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if len(stderr) > 500 {
		stderr = "..." + stderr[len(stderr)-500:]
	}
	if stderr == "" {
		return fmt.Sprintf("ffmpeg: %v", e.Err)
	}
	return fmt.Sprintf("ffmpeg: %v: %s", e.Err, stderr)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Runner executes commands with a configured ffmpeg binary.
type Runner struct {
	Binary string
}

// NewRunner resolves binary on PATH. A missing encoder is a startup error.
func NewRunner(binary string) (*Runner, error) {
	if binary == "" {
		binary = "ffmpeg"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg binary %q not found: %w", binary, err)
	}
	return &Runner{Binary: path}, nil
}

// Run executes cmd and waits for it to finish.
func (r *Runner) Run(ctx context.Context, cmd *Command) error {
	args := cmd.Build()
	proc := exec.CommandContext(ctx, r.Binary, args...) //nolint:gosec

	var stderr bytes.Buffer
	proc.Stderr = &stderr

	if err := proc.Run(); err != nil {
		return &Error{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}
	return nil
}

// Encode converts src into a web-compatible mp4 at dst.
func (r *Runner) Encode(ctx context.Context, src, dst string) error {
	opts := append(Preset264Web(), PresetAAC()...)
	return r.Run(ctx, NewCommand(src, dst, opts...))
}
