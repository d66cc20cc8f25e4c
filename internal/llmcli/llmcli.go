// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llmcli adapts an external text-generation command to the phrase
// generator and reviewer interfaces. The command receives a rendered prompt
// on stdin and writes its answer to stdout; no model API is called directly.
package llmcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunPiped(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error
}

// osExecutor runs real commands.
type osExecutor struct{}

func (osExecutor) LookPath(file string) (string, error) { return exec.LookPath(file) }

func (osExecutor) RunPiped(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// defaultExec is the package-level executor; tests replace it.
var defaultExec executor = osExecutor{}

// Command is an external program plus its fixed arguments.
type Command struct {
	Name string
	Args []string

	exec executor
}

// ParseCommand splits a command line on whitespace. Shell quoting is not
// interpreted; wrap complex invocations in a script.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, errors.New("empty command")
	}
	return Command{Name: fields[0], Args: fields[1:]}, nil
}

func (c Command) executor() executor {
	if c.exec != nil {
		return c.exec
	}
	return defaultExec
}

// String renders the command line.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Check verifies the program is on PATH.
func (c Command) Check() error {
	if _, err := c.executor().LookPath(c.Name); err != nil {
		return fmt.Errorf("%s not found on PATH: %w", c.Name, err)
	}
	return nil
}

// run feeds prompt to the command and returns its stdout.
func (c Command) run(ctx context.Context, prompt string) ([]byte, error) {
	var out bytes.Buffer
	if err := c.executor().RunPiped(ctx, c.Name, c.Args, strings.NewReader(prompt), &out); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("running %s: %w", c.Name, err)
	}
	return out.Bytes(), nil
}

// extractJSON returns the outermost JSON value in out, skipping any prose
// or markdown fences the command printed around it. open is '[' or '{'.
func extractJSON(out []byte, open, close byte) ([]byte, bool) {
	start := bytes.IndexByte(out, open)
	end := bytes.LastIndexByte(out, close)
	if start < 0 || end <= start {
		return nil, false
	}
	return out[start : end+1], true
}
