package tts

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"unicode"
)

var commandContext = exec.CommandContext

const (
	placeholderVoice  = "{voice}"
	placeholderOutput = "{output}"
)

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

// WithArgs overrides the synthesis argument template.
func WithArgs(args []string) Option {
	return func(c *CLI) {
		if len(args) > 0 {
			c.args = append([]string(nil), args...)
		}
	}
}

// WithListVoicesArgs overrides the arguments used to list voices.
func WithListVoicesArgs(args []string) Option {
	return func(c *CLI) {
		if len(args) > 0 {
			c.listArgs = append([]string(nil), args...)
		}
	}
}

// CLI runs the synthesizer executable.
type CLI struct {
	binary   string
	args     []string
	listArgs []string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{
		binary:   "kokoro-tts",
		args:     []string{"--voice", placeholderVoice, "--output", placeholderOutput},
		listArgs: []string{"--list-voices"},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Binary returns the synthesizer executable.
func (c *CLI) Binary() string {
	return c.binary
}

// Args substitutes voice and output into the argument template.
func (c *CLI) Args(voice, output string) []string {
	replacer := strings.NewReplacer(placeholderVoice, voice, placeholderOutput, output)
	args := make([]string, len(c.args))
	for i, arg := range c.args {
		args[i] = replacer.Replace(arg)
	}
	return args
}

// Synthesize speaks text with voice into output and blocks until the
// synthesizer exits.
func (c *CLI) Synthesize(ctx context.Context, voice, text, output string) error {
	if strings.TrimSpace(voice) == "" {
		return errors.New("voice required")
	}
	if strings.TrimSpace(output) == "" {
		return errors.New("output path required")
	}
	cmd := commandContext(ctx, c.binary, c.Args(voice, output)...) //nolint:gosec
	cmd.Stdin = strings.NewReader(text)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s synthesize: %w: %s", c.binary, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Voices asks the synthesizer for the voices it supports.
func (c *CLI) Voices(ctx context.Context) ([]string, error) {
	cmd := commandContext(ctx, c.binary, c.listArgs...) //nolint:gosec
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%s list voices: %w: %s", c.binary, err, strings.TrimSpace(string(out)))
	}
	return ParseVoices(string(out)), nil
}

// ParseVoices extracts voice names from listing output. Headings ending in a
// colon are ignored, as is leading enumeration such as "3." or "-".
func ParseVoices(output string) []string {
	var voices []string
	seen := make(map[string]struct{})
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasSuffix(line, ":") {
			continue
		}
		line = strings.TrimLeftFunc(line, func(r rune) bool {
			return unicode.IsDigit(r) || r == '.' || r == '-' || r == '*' || r == ')' || unicode.IsSpace(r)
		})
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		name := strings.TrimSuffix(fields[0], ",")
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		voices = append(voices, name)
	}
	return voices
}
