package manim

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

var commandContext = exec.CommandContext

const tailLines = 20

// Request describes one scene render.
type Request struct {
	Source         string
	Scene          string
	QualityFlag    string
	MediaDir       string
	DisableCaching bool
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// CLI wraps the manim command-line renderer.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "manim"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Binary returns the renderer executable.
func (c *CLI) Binary() string {
	return c.binary
}

// Args builds the renderer argument list for req.
func Args(req Request) []string {
	args := make([]string, 0, 6)
	if flag := strings.TrimSpace(req.QualityFlag); flag != "" {
		args = append(args, flag)
	}
	if req.MediaDir != "" {
		args = append(args, "--media_dir", req.MediaDir)
	}
	args = append(args, req.Source, req.Scene)
	if req.DisableCaching {
		args = append(args, "--disable_caching")
	}
	return args
}

// Render runs the renderer for one scene and blocks until it exits. Each line
// of renderer output is passed to output when it is non-nil. On failure the
// error carries the last lines of output.
func (c *CLI) Render(ctx context.Context, req Request, output func(string)) error {
	if strings.TrimSpace(req.Source) == "" {
		return errors.New("source path required")
	}
	if strings.TrimSpace(req.Scene) == "" {
		return errors.New("scene name required")
	}

	cmd := commandContext(ctx, c.binary, Args(req)...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", c.binary, err)
	}

	tail := make([]string, 0, tailLines)
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanLines)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if len(tail) == tailLines {
			tail = tail[1:]
		}
		tail = append(tail, line)
		if output != nil {
			output(line)
		}
	}
	scanErr := scanner.Err()
	if scanErr != nil {
		// Keep the pipe draining so the child can exit and Wait returns.
		_, _ = io.Copy(io.Discard, stdout)
	}

	if err := cmd.Wait(); err != nil {
		if len(tail) > 0 {
			return fmt.Errorf("%s %s failed: %w: %s", c.binary, req.Scene, err, strings.Join(tail, " | "))
		}
		return fmt.Errorf("%s %s failed: %w", c.binary, req.Scene, err)
	}
	if scanErr != nil {
		return fmt.Errorf("read %s output: %w", c.binary, scanErr)
	}
	return nil
}

// scanLines splits on \n and on the bare \r progress bars use.
func scanLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
