// Package audio captures microphone audio with ffmpeg and plays speech with
// ffplay for the local companion.
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
)

// runFunc runs an external program with the given stdin and stdout. Tests
// replace it to avoid spawning ffmpeg.
type runFunc func(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error

func execRun(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%s is required (install ffmpeg and ensure it is in PATH): %w", name, err)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	if stdout == nil {
		stdout = io.Discard
	}
	cmd.Stdout = stdout
	cmd.Stderr = io.Discard
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%s exited with status %d", name, exitErr.ExitCode())
		}
		return fmt.Errorf("run %s: %w", name, err)
	}
	return nil
}
