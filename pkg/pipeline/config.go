package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// RawStage is one block of a PIPELINE file: the declared stage kind plus the
// raw key/value pairs in declaration order. Values are kept as text; typing
// happens later, during parameter resolution. Comment and blank lines are
// carried verbatim so a parsed file can be written back with the user's
// annotations intact.
type RawStage struct {
	Kind StageKind
	Line int // line number of the stage header

	leading  []string // verbatim comment/blank lines before the header
	trailing []string // verbatim lines after the last block of the file
	items    []blockItem
	values   map[string]string
}

// blockItem is one line of a stage block: either a parameter (key set) or a
// verbatim comment/blank line.
type blockItem struct {
	key  string
	text string
}

func newRawStage(kind StageKind, line int) *RawStage {
	return &RawStage{Kind: kind, Line: line, values: make(map[string]string)}
}

// NewRawStage creates an empty block, for building pipeline files
// programmatically.
func NewRawStage(kind StageKind) *RawStage {
	return newRawStage(kind, 0)
}

func (rs *RawStage) set(key, value string) error {
	if _, ok := rs.values[key]; ok {
		return errors.Errorf("duplicate parameter %q", key)
	}
	rs.items = append(rs.items, blockItem{key: key})
	rs.values[key] = value
	return nil
}

// Keys returns the parameter names in declaration order.
func (rs *RawStage) Keys() []string {
	keys := make([]string, 0, len(rs.items))
	for _, it := range rs.items {
		if it.key != "" {
			keys = append(keys, it.key)
		}
	}
	return keys
}

// Leading returns the verbatim comment and blank lines preceding the block.
func (rs *RawStage) Leading() []string { return append([]string(nil), rs.leading...) }

// Set stores value under key, appending the key when it is new.
func (rs *RawStage) Set(key, value string) {
	if _, ok := rs.values[key]; !ok {
		rs.items = append(rs.items, blockItem{key: key})
	}
	rs.values[key] = value
}

// Delete removes key from the block.
func (rs *RawStage) Delete(key string) {
	if _, ok := rs.values[key]; !ok {
		return
	}
	delete(rs.values, key)
	for i, it := range rs.items {
		if it.key == key {
			rs.items = append(rs.items[:i], rs.items[i+1:]...)
			break
		}
	}
}

// Clone returns a deep copy of the block.
func (rs *RawStage) Clone() *RawStage {
	out := newRawStage(rs.Kind, rs.Line)
	out.leading = append(out.leading, rs.leading...)
	out.trailing = append(out.trailing, rs.trailing...)
	out.items = append(out.items, rs.items...)
	for k, v := range rs.values {
		out.values[k] = v
	}
	return out
}

// Get returns the raw text value for key.
func (rs *RawStage) Get(key string) (string, bool) {
	v, ok := rs.values[key]
	return v, ok
}

// WriteTo serializes the block back into PIPELINE syntax, surrounding comment
// and blank lines included. Parsing the output again yields an identical
// stage record.
func (rs *RawStage) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder
	for _, line := range rs.leading {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteString(string(rs.Kind))
	sb.WriteString("\n{\n")
	for _, it := range rs.items {
		if it.key == "" {
			sb.WriteString(it.text)
			sb.WriteByte('\n')
			continue
		}
		fmt.Fprintf(&sb, "    %s: %s\n", it.key, rs.values[it.key])
	}
	sb.WriteString("}\n")
	for _, line := range rs.trailing {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}

// ParseFile reads a PIPELINE file into its ordered stage blocks.
func ParseFile(path string) ([]*RawStage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open pipeline file %s", path)
	}
	defer f.Close()
	stages, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse pipeline file %s", path)
	}
	return stages, nil
}

type parseState int

const (
	stateOutside parseState = iota // expecting a stage header
	stateHeader                    // header seen, expecting '{'
	stateBlock                     // inside '{ ... }'
)

// Parse reads PIPELINE syntax line by line. Blank lines and lines whose first
// non-blank character is '#' carry no configuration but are kept verbatim on
// the surrounding stage record. Outside a block only a stage header is legal;
// inside a block only 'key: value' lines and the closing '}'. Any other
// content is a fatal parse error naming the line.
func Parse(r io.Reader) ([]*RawStage, error) {
	var (
		stages  []*RawStage
		current *RawStage
		state   = stateOutside
		lineNo  int
		pending []string
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		line := strings.TrimSpace(raw)
		if line == "" || line[0] == '#' {
			if state == stateOutside {
				pending = append(pending, raw)
			} else {
				current.items = append(current.items, blockItem{text: raw})
			}
			continue
		}

		switch state {
		case stateOutside:
			header, _, _ := strings.Cut(line, "#")
			kind, ok := matchKind(header)
			if !ok {
				return nil, &ConfigError{Line: lineNo,
					Err: errors.Errorf("the module %q does not exist", strings.TrimSpace(header))}
			}
			current = newRawStage(kind, lineNo)
			current.leading = pending
			pending = nil
			state = stateHeader

		case stateHeader:
			if line[0] != '{' {
				return nil, &ConfigError{Stage: current.Kind, Line: lineNo,
					Err: errors.Errorf("expected '{' after %s, found %q", current.Kind, line)}
			}
			state = stateBlock

		case stateBlock:
			if line[0] == '}' {
				stages = append(stages, current)
				current = nil
				state = stateOutside
				continue
			}
			key, value, err := splitParamLine(line)
			if err != nil {
				return nil, &ConfigError{Stage: current.Kind, Line: lineNo, Err: err}
			}
			if err := current.set(key, value); err != nil {
				return nil, &ConfigError{Stage: current.Kind, Line: lineNo, Err: err}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "unable to read pipeline file")
	}
	if state != stateOutside {
		return nil, &ConfigError{Stage: current.Kind, Line: current.Line,
			Err: errors.New("unterminated stage block")}
	}
	if len(pending) > 0 && len(stages) > 0 {
		last := stages[len(stages)-1]
		last.trailing = append(last.trailing, pending...)
	}
	return stages, nil
}

// splitParamLine turns a 'key: value' line into its parts. All blanks are
// removed, a trailing '#' comment is stripped and the split happens on the
// first colon only, so path values with colons survive.
func splitParamLine(line string) (string, string, error) {
	cleaned := strings.NewReplacer(" ", "", "\t", "").Replace(line)
	cleaned, _, _ = strings.Cut(cleaned, "#")
	key, value, found := strings.Cut(cleaned, ":")
	if !found || key == "" {
		return "", "", errors.Errorf("malformed parameter line %q", line)
	}
	return key, value, nil
}
