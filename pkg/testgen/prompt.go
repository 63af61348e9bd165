package testgen

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Prompter supplies the interactive answers the generator needs.
type Prompter interface {
	// Path asks for a free-form path or file name.
	Path(prompt string) (string, error)
	// SelectFile lists the files in dir and asks for one by number.
	SelectFile(dir, prompt string) (string, error)
}

// Terminal prompts on an io.Reader/io.Writer pair, stdin and stdout by
// default.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminal creates a terminal prompter. Nil arguments default to stdin
// and stdout.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &Terminal{in: bufio.NewReader(in), out: out}
}

// Path implements Prompter.
func (t *Terminal) Path(prompt string) (string, error) {
	fmt.Fprint(t.out, prompt)
	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		return "", errors.Wrap(err, "unable to read answer")
	}
	return strings.TrimSpace(line), nil
}

// SelectFile implements Prompter. Entering 0 aborts the selection.
func (t *Terminal) SelectFile(dir, prompt string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errors.Wrapf(err, "unable to read %s", dir)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}
	if len(files) == 0 {
		return "", errors.Errorf("no files in %s", dir)
	}

	fmt.Fprintf(t.out, "Scanning files in the model folder %s...\n", dir)
	for i, file := range files {
		fmt.Fprintf(t.out, "%d.%s\n", i+1, file)
	}

	for {
		answer, err := t.Path(prompt)
		if err != nil {
			return "", err
		}
		choice, err := strconv.Atoi(answer)
		switch {
		case err != nil:
			fmt.Fprintln(t.out, "Invalid input. Please enter a valid file number (0 to quit)")
		case choice == 0:
			return "", errors.New("selection aborted")
		case choice >= 1 && choice <= len(files):
			fmt.Fprintf(t.out, "Selected file: %s\n", files[choice-1])
			return files[choice-1], nil
		default:
			fmt.Fprintln(t.out, "Invalid input. Please enter a valid file number (0 to quit)")
		}
	}
}

var _ Prompter = (*Terminal)(nil)
