package rewrite

import (
	"fmt"
	"html"
)

// DeclarationErrorKind classifies declaration-time failures. All of them are
// local and non-fatal: they render as an inline error span in page output
// (unless the declaration was silent) and never abort a render.
type DeclarationErrorKind string

const (
	ErrInvalidTargetPage    DeclarationErrorKind = "invalid-target-page"
	ErrInvalidLinkSyntax    DeclarationErrorKind = "invalid-link-syntax"
	ErrDisallowedNamespace  DeclarationErrorKind = "disallowed-namespace"
	ErrDuplicateDeclaration DeclarationErrorKind = "duplicate-declaration"
)

// DeclarationError is the inline-renderable declaration failure.
type DeclarationError struct {
	Kind   DeclarationErrorKind
	Target string // offending page reference, when applicable
	Old    string // previous primary text (duplicate only)
	New    string // conflicting primary text (duplicate only)
}

// Error implements the error interface
func (e *DeclarationError) Error() string {
	switch e.Kind {
	case ErrInvalidTargetPage:
		return fmt.Sprintf("invalid target page %q", e.Target)
	case ErrInvalidLinkSyntax:
		return "no valid [[...]] link in declaration"
	case ErrDisallowedNamespace:
		return "default link text is not allowed in this namespace"
	case ErrDuplicateDeclaration:
		return fmt.Sprintf("conflicting default link text: kept %q, ignored %q", e.Old, e.New)
	default:
		return string(e.Kind)
	}
}

// InlineHTML renders the error as the inline span substituted into page output.
func (e *DeclarationError) InlineHTML() string {
	return `<span class="error linktext-error">` + html.EscapeString(e.Error()) + `</span>`
}

// AsDeclarationError returns the typed declaration error, if err is one.
func AsDeclarationError(err error) (*DeclarationError, bool) {
	de, ok := err.(*DeclarationError)
	return de, ok
}
