package godm

import (
	"errors"
	"fmt"
	"strings"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	CodeInvalidType       = "invalid_type"
	CodeRequired          = "required"
	CodeTooSmall          = "too_small"
	CodeTooBig            = "too_big"
	CodeTooShort          = "too_short"
	CodeTooLong           = "too_long"
	CodeValidatorRejected = "validator_rejected"
	CodeConvertFailed     = "convert_failed"
	CodeInvalidOperator   = "invalid_operator"
)

// Issue represents a single validation entry.
type Issue struct {
	Path    string // Dotted field path (for example: address.city or tags.2).
	Code    string // One of the codes listed above.
	Message string
	Hint    string // Optional: remediation hints, expected shapes, etc.
	Cause   error  // Optional: underlying error.
}

// Issues is a collection of validation errors that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. invalid_type at address.city
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// rebaseIssues prefixes every issue path with the given dotted base so that
// child resolver failures surface with their full path from the root.
func rebaseIssues(err error, base string) error {
	if err == nil {
		return nil
	}
	iss, ok := AsIssues(err)
	if !ok {
		return Issues{{Path: base, Code: CodeConvertFailed, Message: err.Error(), Cause: err}}
	}
	out := make(Issues, 0, len(iss))
	for _, it := range iss {
		p := it.Path
		switch {
		case p == "":
			p = base
		case base != "":
			p = base + "." + p
		}
		out = append(out, Issue{Path: p, Code: it.Code, Message: it.Message, Hint: it.Hint, Cause: it.Cause})
	}
	return out
}

// DefinitionError reports an invalid schema definition: a duplicate store
// key, an option referring to an undeclared field, a field type that cannot
// be mapped to any kind. It is fatal at build time and never recoverable.
type DefinitionError struct {
	Schema string // Schema name, when known.
	Field  string // Offending field, when the error is field-scoped.
	Reason string
}

func (e *DefinitionError) Error() string {
	b := &strings.Builder{}
	b.WriteString("schema definition")
	if e.Schema != "" {
		fmt.Fprintf(b, " %q", e.Schema)
	}
	if e.Field != "" {
		fmt.Fprintf(b, ", field %q", e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

func definitionErrf(schema, field, format string, args ...any) *DefinitionError {
	return &DefinitionError{Schema: schema, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// PathError reports a malformed dot-notation path: a segment that is neither
// an identifier nor an index/placeholder where one is required, or a segment
// kind the addressed descriptor cannot accept.
type PathError struct {
	Path    string // The full path being resolved.
	Segment string // The segment that failed.
	Reason  string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("cannot resolve %q: %s at segment %q", e.Path, e.Reason, e.Segment)
}

// LifecycleError reports an operation that is invalid for the document's
// current state: saving a deleted document, deleting one that was never
// inserted, updating without a primary key.
type LifecycleError struct {
	Op     string
	State  State
	Reason string
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("%s: %s (document state %s)", e.Op, e.Reason, e.State)
}

func lifecycleErrf(op string, state State, format string, args ...any) *LifecycleError {
	return &LifecycleError{Op: op, State: state, Reason: fmt.Sprintf(format, args...)}
}
