// Package diag defines the error taxonomy of the preview renderer and the
// diagnostics list returned alongside a best-effort render.
package diag

import (
	"fmt"
	"strings"
)

// ValidationError reports an invalid frame or a structurally malformed
// document. It is fatal to a render.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	msg := "invalid document"
	if e.Field != "" {
		msg += ": " + e.Field
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

// UnsupportedTypeError reports a node or background type the renderer does
// not know. The offending element is dropped.
type UnsupportedTypeError struct {
	Kind string // "node" or "background"
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	kind := e.Kind
	if kind == "" {
		kind = "node"
	}
	return fmt.Sprintf("unsupported %s type %q", kind, e.Type)
}

// ResourceFetchError reports a failed retrieval or decode of an external
// asset. The referencing node is dropped.
type ResourceFetchError struct {
	URL     string
	Timeout bool
	Err     error
}

func (e *ResourceFetchError) Error() string {
	var b strings.Builder
	b.WriteString("failed to fetch resource")
	if e.URL != "" {
		fmt.Fprintf(&b, " %s", truncateURL(e.URL))
	}
	if e.Timeout {
		b.WriteString(" (timeout)")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ResourceFetchError) Unwrap() error { return e.Err }

// RasterizationError reports a failure while producing or encoding the
// final pixels. It is fatal to a render.
type RasterizationError struct {
	Op  string
	Err error
}

func (e *RasterizationError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("rasterization failed: %v", e.Err)
	}
	return fmt.Sprintf("rasterization failed: %s: %v", e.Op, e.Err)
}

func (e *RasterizationError) Unwrap() error { return e.Err }

// truncateURL keeps inline data URIs from flooding error messages.
func truncateURL(u string) string {
	const max = 96
	if len(u) <= max {
		return u
	}
	return u[:max] + "..."
}
