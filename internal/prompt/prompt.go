// Package prompt implements the blocking user interaction used during a lookup:
// yes/no confirmation, validated numeric choice, free text and paged reading.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/mattn/go-isatty"
)

// ErrNoInput is returned when the input stream ends before an answer
var ErrNoInput = errors.New("no input")

// Interactor asks the user questions. Every call blocks until answered.
type Interactor interface {
	Confirm(message string, def bool) (bool, error)
	// ChooseInt re-prompts until validate accepts the raw answer
	ChooseInt(message string, validate func(raw string) (int, error)) (int, error)
	Ask(message, def string) (string, error)
	Page(paragraphs []string) error
}

// Console talks to the user over a reader and a writer
type Console struct {
	in     *bufio.Reader
	out    io.Writer
	pager  bool
	isTerm func() bool
}

// NewConsole creates a Console. With pager set, Page pipes text through
// $PAGER (or less/more) when out is a terminal.
func NewConsole(in io.Reader, out io.Writer, pager bool) *Console {
	return &Console{
		in:     bufio.NewReader(in),
		out:    out,
		pager:  pager,
		isTerm: func() bool { return isTerminal(out) },
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (c *Console) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrNoInput
		}
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Confirm asks a yes/no question; an empty answer takes def
func (c *Console) Confirm(message string, def bool) (bool, error) {
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}

	for {
		_, _ = fmt.Fprintf(c.out, "%s %s: ", message, hint)
		answer, err := c.readLine()
		if err != nil {
			return false, err
		}

		switch strings.ToLower(answer) {
		case "":
			return def, nil
		case "y", "yes", "t", "true", "1":
			return true, nil
		case "n", "no", "f", "false", "0":
			return false, nil
		}
		_, _ = fmt.Fprintf(c.out, "Error: %q is not a valid boolean\n", answer)
	}
}

// ChooseInt asks until validate accepts the answer
func (c *Console) ChooseInt(message string, validate func(raw string) (int, error)) (int, error) {
	for {
		_, _ = fmt.Fprintf(c.out, "%s: ", message)
		answer, err := c.readLine()
		if err != nil {
			return 0, err
		}

		n, err := validate(answer)
		if err == nil {
			return n, nil
		}
		_, _ = fmt.Fprintf(c.out, "Error: %v\n", err)
	}
}

// Ask reads a free-text answer; an empty answer takes def
func (c *Console) Ask(message, def string) (string, error) {
	if def != "" {
		_, _ = fmt.Fprintf(c.out, "%s [%s]: ", message, def)
	} else {
		_, _ = fmt.Fprintf(c.out, "%s: ", message)
	}

	answer, err := c.readLine()
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// Page shows the paragraphs, through a pager when one is usable
func (c *Console) Page(paragraphs []string) error {
	text := "Article:\n\n" + strings.Join(paragraphs, "\n\n") + "\n"

	if c.pager && c.isTerm() {
		if cmd := pagerCommand(); cmd != nil {
			cmd.Stdin = strings.NewReader(text)
			cmd.Stdout = c.out
			cmd.Stderr = os.Stderr
			if err := cmd.Run(); err == nil {
				return nil
			}
		}
	}

	if _, err := io.WriteString(c.out, text); err != nil {
		return fmt.Errorf("write article: %w", err)
	}
	return nil
}

// pagerCommand resolves $PAGER, falling back to less and more
func pagerCommand() *exec.Cmd {
	if fields := strings.Fields(os.Getenv("PAGER")); len(fields) > 0 {
		return exec.Command(fields[0], fields[1:]...)
	}
	for _, name := range []string{"less", "more"} {
		if path, err := exec.LookPath(name); err == nil {
			if name == "less" {
				return exec.Command(path, "-R")
			}
			return exec.Command(path)
		}
	}
	return nil
}

// Unattended answers every question without a user: confirmations take
// their default, menus take their exit entry, reading is skipped
type Unattended struct{}

func (Unattended) Confirm(_ string, def bool) (bool, error) {
	return def, nil
}

// ChooseInt offers "0" and fails with ErrNoInput when validate refuses it
func (Unattended) ChooseInt(_ string, validate func(raw string) (int, error)) (int, error) {
	n, err := validate("0")
	if err != nil {
		return 0, ErrNoInput
	}
	return n, nil
}

func (Unattended) Ask(_ string, def string) (string, error) {
	return def, nil
}

func (Unattended) Page([]string) error {
	return nil
}
