package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Local implements the small filesystem collaborators in process: the
// no-reorganize copy/move, the folder-contents copy and the folder delete.
type Local struct{}

// NewLocal creates a local filesystem runner.
func NewLocal() *Local { return &Local{} }

// Run implements Runner.
func (l *Local) Run(ctx context.Context, inv Invocation) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, errors.Wrap(ctx.Err(), "interrupted")
	default:
	}

	switch inv.Script {
	case "no_reorganize.py":
		return l.noReorganize(inv)
	case "copy_folder_contents.py":
		return l.copyContents(inv)
	case "delete_folder.py":
		return l.deleteFolder(inv)
	}
	return Result{}, errors.Errorf("unable to run %s locally", inv.Script)
}

func (l *Local) noReorganize(inv Invocation) (Result, error) {
	input := argValue(inv.Args, "-i")
	output := argValue(inv.Args, "-o")

	if hasArg(inv.Args, "--mv") {
		if err := moveTree(input, output); err != nil {
			return Result{}, errors.Wrapf(err, "unable to move %s to %s", input, output)
		}
		return Result{Output: fmt.Sprintf("%s was moved to %s", input, output)}, nil
	}
	if err := copyTree(input, output); err != nil {
		return Result{}, errors.Wrapf(err, "unable to copy %s to %s", input, output)
	}
	return Result{Output: fmt.Sprintf("%s was copied to %s", input, output)}, nil
}

func (l *Local) copyContents(inv Invocation) (Result, error) {
	input := argValue(inv.Args, "-i")
	target := argValue(inv.Args, "-o")

	entries, err := os.ReadDir(input)
	if err != nil {
		return Result{}, errors.Wrapf(err, "unable to read %s", input)
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return Result{}, errors.Wrapf(err, "unable to create %s", target)
	}
	for _, entry := range entries {
		src := filepath.Join(input, entry.Name())
		dst := filepath.Join(target, entry.Name())
		if entry.IsDir() {
			err = copyTree(src, dst)
		} else {
			err = copyFile(src, dst)
		}
		if err != nil {
			return Result{}, errors.Wrapf(err, "unable to copy %s to %s", src, dst)
		}
	}
	return Result{Output: fmt.Sprintf("contents of %s were copied to %s", input, target)}, nil
}

func (l *Local) deleteFolder(inv Invocation) (Result, error) {
	folder := argValue(inv.Args, "-f")
	if err := os.RemoveAll(folder); err != nil {
		return Result{}, errors.Wrapf(err, "unable to delete %s", folder)
	}
	return Result{Output: fmt.Sprintf("%s was deleted", folder)}, nil
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if entry.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// moveTree renames when possible and falls back to copy plus delete across
// filesystems.
func moveTree(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyTree(src, dst); err != nil {
		return err
	}
	return os.RemoveAll(src)
}

var _ Runner = (*Local)(nil)
