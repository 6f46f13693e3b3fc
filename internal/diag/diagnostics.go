package diag

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Severity classifies a diagnostic.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Path addresses a node inside the document tree: the index in the top level
// objects list, followed by indexes inside nested groups.
type Path []int

func (p Path) String() string {
	if len(p) == 0 {
		return "document"
	}
	parts := make([]string, len(p))
	for i, idx := range p {
		parts[i] = strconv.Itoa(idx)
	}
	return "objects[" + strings.Join(parts, "].objects[") + "]"
}

// Child returns a new path addressing the i-th child of p.
func (p Path) Child(i int) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = i
	return out
}

// Diagnostic is one non-fatal problem recorded during a render.
type Diagnostic struct {
	Severity Severity
	Path     Path
	NodeType string
	Err      error
}

func (d Diagnostic) String() string {
	if d.NodeType != "" {
		return fmt.Sprintf("%s: %s (%s): %v", d.Severity, d.Path, d.NodeType, d.Err)
	}
	return fmt.Sprintf("%s: %s: %v", d.Severity, d.Path, d.Err)
}

// Diagnostics is an ordered list of diagnostics.
type Diagnostics []Diagnostic

// Add appends a warning diagnostic for the node at path.
func (d *Diagnostics) Add(path Path, nodeType string, err error) {
	*d = append(*d, Diagnostic{
		Severity: SeverityWarning,
		Path:     path,
		NodeType: nodeType,
		Err:      err,
	})
}

// Append appends all diagnostics of other.
func (d *Diagnostics) Append(other Diagnostics) {
	*d = append(*d, other...)
}

// HasError reports whether any diagnostic has error severity.
func (d Diagnostics) HasError() bool {
	for _, diag := range d {
		if diag.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Strings renders every diagnostic as a line of text.
func (d Diagnostics) Strings() []string {
	out := make([]string, len(d))
	for i, diag := range d {
		out[i] = diag.String()
	}
	return out
}

// Count returns how many diagnostics wrap an error matching target, as
// errors.As would.
func Count[T error](d Diagnostics) int {
	n := 0
	for _, diag := range d {
		var target T
		if errors.As(diag.Err, &target) {
			n++
		}
	}
	return n
}

// ErrorOrNil folds the diagnostics into a single multierror, or nil when
// the list is empty.
func (d Diagnostics) ErrorOrNil() error {
	var result *multierror.Error
	for _, diag := range d {
		result = multierror.Append(result, fmt.Errorf("%s: %w", diag.Path, diag.Err))
	}
	return result.ErrorOrNil()
}
