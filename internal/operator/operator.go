// Package operator holds the dialogs with the person running the tool.
package operator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// ErrCancelled is returned when the operator leaves a dialog without an
// answer.
var ErrCancelled = errors.New("cancelled by operator")

// Interaction is what the commands need from the operator.
type Interaction interface {
	// Choose shows the numbered options and returns the index of the
	// chosen one.
	Choose(ctx context.Context, prompt string, options []string) (int, error)
	Confirm(ctx context.Context, msg string) (bool, error)
	// Ask reads a line of free text. An empty answer yields def.
	Ask(ctx context.Context, prompt, def string) (string, error)
	Notify(ctx context.Context, msg string)
}

// Terminal talks to the operator through line based terminal io.
type Terminal struct {
	out   io.Writer
	lines chan lineResult
	once  sync.Once
	in    *bufio.Reader

	prompt *color.Color
	info   *color.Color
}

type lineResult struct {
	line string
	err  error
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		out:    out,
		in:     bufio.NewReader(in),
		lines:  make(chan lineResult),
		prompt: color.New(color.FgCyan, color.Bold),
		info:   color.New(color.FgGreen),
	}
}

// Interactive reports whether stdin is a terminal, ie. whether dialogs
// can be answered at all.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// readLine reads the next line. The read itself cannot be interrupted, so
// on cancellation the pending line is handed to the next call.
func (t *Terminal) readLine(ctx context.Context) (string, error) {
	t.once.Do(func() {
		go func() {
			for {
				line, err := t.in.ReadString('\n')
				t.lines <- lineResult{line: strings.TrimSpace(line), err: err}
				if err != nil {
					close(t.lines)
					return
				}
			}
		}()
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r, ok := <-t.lines:
		if !ok {
			return "", ErrCancelled
		}
		if r.err != nil && r.line == "" {
			if errors.Is(r.err, io.EOF) {
				return "", ErrCancelled
			}
			return "", r.err
		}
		return r.line, nil
	}
}

func (t *Terminal) Choose(ctx context.Context, prompt string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, errors.New("nothing to choose from")
	}
	t.prompt.Fprintln(t.out, prompt)
	for i, o := range options {
		fmt.Fprintf(t.out, "  %d) %s\n", i, o)
	}
	for {
		t.prompt.Fprintf(t.out, "number (empty to cancel): ")
		line, err := t.readLine(ctx)
		if err != nil {
			return 0, err
		}
		if line == "" {
			return 0, ErrCancelled
		}
		n, err := strconv.Atoi(line)
		if err == nil && n >= 0 && n < len(options) {
			return n, nil
		}
		fmt.Fprintf(t.out, "please enter a number between 0 and %d\n", len(options)-1)
	}
}

func (t *Terminal) Confirm(ctx context.Context, msg string) (bool, error) {
	t.prompt.Fprintf(t.out, "%s [y/N]: ", msg)
	line, err := t.readLine(ctx)
	if err != nil {
		if errors.Is(err, ErrCancelled) {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(line) {
	case "y", "yes", "j", "ja":
		return true, nil
	default:
		return false, nil
	}
}

func (t *Terminal) Ask(ctx context.Context, prompt, def string) (string, error) {
	if def != "" {
		t.prompt.Fprintf(t.out, "%s [%s]: ", prompt, def)
	} else {
		t.prompt.Fprintf(t.out, "%s: ", prompt)
	}
	line, err := t.readLine(ctx)
	if err != nil {
		return "", err
	}
	if line == "" {
		return def, nil
	}
	return line, nil
}

func (t *Terminal) Notify(ctx context.Context, msg string) {
	t.info.Fprintln(t.out, msg)
}
