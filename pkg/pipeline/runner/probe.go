package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Probe classification lines. The dispatcher matches them in the captured
// output, so their wording is fixed.
const (
	probeReady = "Folder is correctly structured for the image processing pipeline"
	probeNotReady = "Folder is NOT correctly structured for the image processing pipeline\n" +
		"Checking if the folder can be restructured using the script reoganize.py"
	probeReorganize    = "Folder is correctly structured to be restructed with reorganize.py"
	probeNotReorganize = "Folder is NOT correctly structured to be restructed with reorganize.py"
)

const probeConcurrency = 4

var errNotStructured = errors.New("folder is not structured")

// Probe is the native folder-structure collaborator. It walks the cohort
// folder twice: first for the processing layout (every series directory holds
// a DCM/ directory and, with segmentation, an RTSTRUCT.dcm file), then for
// the reorganizable layout (one RTSTRUCT-like file per series directory,
// stored directly under the subject).
type Probe struct {
	log *zap.SugaredLogger
}

// NewProbe creates a probe runner.
func NewProbe(log *zap.SugaredLogger) *Probe {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Probe{log: log}
}

// Run implements Runner.
func (p *Probe) Run(ctx context.Context, inv Invocation) (Result, error) {
	input := argValue(inv.Args, "-i")
	withSegmentation := !hasArg(inv.Args, "--no-segmentation")

	subjects, err := subjectDirs(input)
	if err != nil {
		return Result{}, err
	}

	ok, err := p.checkAll(ctx, subjects, func(subject string) error {
		return p.checkProcessingLayout(subject, withSegmentation)
	})
	if err != nil {
		return Result{}, err
	}
	if ok {
		return Result{Output: probeReady}, nil
	}

	ok, err = p.checkAll(ctx, subjects, func(subject string) error {
		return checkReorganizableLayout(subject, withSegmentation)
	})
	if err != nil {
		return Result{}, err
	}
	if ok {
		return Result{Output: probeNotReady + "\n" + probeReorganize}, nil
	}
	return Result{Output: probeNotReady + "\n" + probeNotReorganize}, nil
}

// checkAll applies check to every subject concurrently and reports whether
// all of them passed.
func (p *Probe) checkAll(ctx context.Context, subjects []string, check func(string) error) (bool, error) {
	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(probeConcurrency)

	for _, subject := range subjects {
		subject := subject
		errGrp.Go(func() error {
			select {
			case <-dCtx.Done():
				return errors.Wrap(dCtx.Err(), "folder probe interrupted")
			default:
			}
			return check(subject)
		})
	}

	err := errGrp.Wait()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errNotStructured):
		return false, nil
	default:
		return false, err
	}
}

func subjectDirs(input string) ([]string, error) {
	entries, err := os.ReadDir(input)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read input folder %s", input)
	}
	subjects := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			subjects = append(subjects, filepath.Join(input, entry.Name()))
		}
	}
	return subjects, nil
}

// checkProcessingLayout verifies one subject against the processing layout.
func (p *Probe) checkProcessingLayout(subject string, withSegmentation bool) error {
	series, err := os.ReadDir(subject)
	if err != nil {
		return errors.Wrapf(errNotStructured, "unable to read %s", subject)
	}
	for _, entry := range series {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(subject, entry.Name())

		if withSegmentation {
			rtstruct := filepath.Join(dir, "RTSTRUCT.dcm")
			info, err := os.Stat(rtstruct)
			if err != nil || info.IsDir() {
				return errors.Wrapf(errNotStructured, "no RTSTRUCT.dcm in %s", dir)
			}
			p.validateRTStruct(rtstruct)
		}

		dcm := filepath.Join(dir, "DCM")
		info, err := os.Stat(dcm)
		if err != nil || !info.IsDir() {
			return errors.Wrapf(errNotStructured, "no DCM directory in %s", dir)
		}
	}
	return nil
}

// checkReorganizableLayout verifies one subject against the reorganizable
// layout: exactly one file under the subject matches each series directory
// name.
func checkReorganizableLayout(subject string, withSegmentation bool) error {
	if !withSegmentation {
		return nil
	}
	entries, err := os.ReadDir(subject)
	if err != nil {
		return errors.Wrapf(errNotStructured, "unable to read %s", subject)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		matches := 0
		for _, file := range files {
			if strings.Contains(strings.ToLower(file), strings.ToLower(entry.Name())) {
				matches++
			}
		}
		if matches != 1 {
			return errors.Wrapf(errNotStructured,
				"%d segmentation candidates for %s in %s", matches, entry.Name(), subject)
		}
	}
	return nil
}

// validateRTStruct parses the file as DICOM and checks its modality. The
// layout check trusts file names; a malformed object is only worth a warning
// here because the segmentation collaborators surface it properly later.
func (p *Probe) validateRTStruct(path string) {
	dataset, err := dicom.ParseFile(path, nil)
	if err != nil {
		p.log.Warnf("%s is not a readable DICOM object: %v", path, err)
		return
	}
	element, err := dataset.FindElementByTag(tag.Modality)
	if err != nil {
		p.log.Warnf("%s has no Modality tag", path)
		return
	}
	modality, ok := element.Value.GetValue().([]string)
	if !ok || len(modality) == 0 || modality[0] != "RTSTRUCT" {
		p.log.Warnf("%s has modality %s, expected RTSTRUCT", path, fmt.Sprint(element.Value))
	}
}

var _ Runner = (*Probe)(nil)
