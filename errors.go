package derive

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors, one per failure class of the derivation pipeline.
var (
	// ErrUnknownEntity is returned when an entity name is not registered.
	ErrUnknownEntity = errors.New("derive: unknown entity")

	// ErrUnknownProperty is returned when a property path cannot be resolved
	// against an entity.
	ErrUnknownProperty = errors.New("derive: unknown property")

	// ErrMethodMatch is returned when a method signature cannot be mapped to criteria.
	ErrMethodMatch = errors.New("derive: method match failure")

	// ErrQueryParse is returned for lexical and syntactic errors in query strings.
	ErrQueryParse = errors.New("derive: query parse failure")

	// ErrUnsupportedRawMutation is returned when a raw update or delete is
	// rendered for a dialect that stores whole documents.
	ErrUnsupportedRawMutation = errors.New("derive: unsupported raw mutation")

	// ErrParameterResolution is returned at bind time when a parameter has no
	// call-site value or the value cannot be converted.
	ErrParameterResolution = errors.New("derive: parameter resolution failure")

	// ErrInvalidCriteria is returned when a criteria tree violates one of its
	// structural invariants.
	ErrInvalidCriteria = errors.New("derive: invalid criteria")

	// ErrStale is returned when a mutation guarded by identity and version
	// matches nothing: the entity was modified or removed concurrently.
	ErrStale = errors.New("derive: stale entity")
)

// UnknownEntityError reports a lookup of an entity that was never registered.
type UnknownEntityError struct {
	Name string
}

// Error returns the error string.
func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf("derive: unknown entity %q", e.Name)
}

// Is reports whether the target error matches ErrUnknownEntity.
func (e *UnknownEntityError) Is(err error) bool {
	return err == ErrUnknownEntity
}

// NewUnknownEntityError returns a new UnknownEntityError.
func NewUnknownEntityError(name string) *UnknownEntityError {
	return &UnknownEntityError{Name: name}
}

// IsUnknownEntity returns true if the error is an UnknownEntityError.
func IsUnknownEntity(err error) bool {
	if err == nil {
		return false
	}
	var e *UnknownEntityError
	return errors.As(err, &e) || errors.Is(err, ErrUnknownEntity)
}

// UnknownPropertyError reports a property path that does not resolve.
type UnknownPropertyError struct {
	Entity string // Root entity of the path.
	Path   string // Dotted path as written.
}

// Error returns the error string.
func (e *UnknownPropertyError) Error() string {
	return fmt.Sprintf("derive: unknown property %q on entity %q", e.Path, e.Entity)
}

// Is reports whether the target error matches ErrUnknownProperty.
func (e *UnknownPropertyError) Is(err error) bool {
	return err == ErrUnknownProperty
}

// NewUnknownPropertyError returns a new UnknownPropertyError.
func NewUnknownPropertyError(entity, path string) *UnknownPropertyError {
	return &UnknownPropertyError{Entity: entity, Path: path}
}

// IsUnknownProperty returns true if the error is an UnknownPropertyError.
func IsUnknownProperty(err error) bool {
	if err == nil {
		return false
	}
	var e *UnknownPropertyError
	return errors.As(err, &e) || errors.Is(err, ErrUnknownProperty)
}

// MethodMatchError reports a method signature that could not be matched.
type MethodMatchError struct {
	Method string // Method name as declared.
	Entity string // Root entity of the method.
	Token  string // Offending token, if any.
	Reason string
}

// Error returns the error string.
func (e *MethodMatchError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "derive: cannot match method %q on entity %q", e.Method, e.Entity)
	if e.Token != "" {
		fmt.Fprintf(&sb, " at token %q", e.Token)
	}
	if e.Reason != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Reason)
	}
	return sb.String()
}

// Is reports whether the target error matches ErrMethodMatch.
func (e *MethodMatchError) Is(err error) bool {
	return err == ErrMethodMatch
}

// NewMethodMatchError returns a new MethodMatchError.
func NewMethodMatchError(method, entity, token, reason string) *MethodMatchError {
	return &MethodMatchError{Method: method, Entity: entity, Token: token, Reason: reason}
}

// IsMethodMatch returns true if the error is a MethodMatchError.
func IsMethodMatch(err error) bool {
	if err == nil {
		return false
	}
	var e *MethodMatchError
	return errors.As(err, &e) || errors.Is(err, ErrMethodMatch)
}

// QueryParseError reports a lexical or syntactic error in a query string.
// Line and Column are 1-based.
type QueryParseError struct {
	Line    int
	Column  int
	Token   string // Token at the failure position, "<EOF>" at the end of input.
	Message string
	Source  string // Text of the offending line.
}

// Pointer returns the offending line with a '*' marker inserted at the failure column.
func (e *QueryParseError) Pointer() string {
	col := e.Column - 1
	if col < 0 {
		col = 0
	}
	if col > len(e.Source) {
		col = len(e.Source)
	}
	return e.Source[:col] + "*" + e.Source[col:]
}

// Error returns the error string.
func (e *QueryParseError) Error() string {
	return fmt.Sprintf("derive: at %d:%d and token '%s', %s\n%s", e.Line, e.Column, e.Token, e.Message, e.Pointer())
}

// Is reports whether the target error matches ErrQueryParse.
func (e *QueryParseError) Is(err error) bool {
	return err == ErrQueryParse
}

// NewQueryParseError returns a new QueryParseError. The source line is
// extracted from text using the 1-based line number.
func NewQueryParseError(text string, line, column int, token, msg string) *QueryParseError {
	lines := strings.Split(text, "\n")
	var src string
	if line >= 1 && line <= len(lines) {
		src = strings.TrimRight(lines[line-1], "\r")
	}
	return &QueryParseError{Line: line, Column: column, Token: token, Message: msg, Source: src}
}

// IsQueryParse returns true if the error is a QueryParseError.
func IsQueryParse(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryParseError
	return errors.As(err, &e) || errors.Is(err, ErrQueryParse)
}

// UnsupportedRawMutationError reports a raw mutation the dialect cannot run safely.
type UnsupportedRawMutationError struct {
	Dialect string
	Kind    string // "update" or "delete".
}

// Error returns the error string.
func (e *UnsupportedRawMutationError) Error() string {
	return fmt.Sprintf("derive: dialect %s does not support raw %s queries", e.Dialect, e.Kind)
}

// Is reports whether the target error matches ErrUnsupportedRawMutation.
func (e *UnsupportedRawMutationError) Is(err error) bool {
	return err == ErrUnsupportedRawMutation
}

// NewUnsupportedRawMutationError returns a new UnsupportedRawMutationError.
func NewUnsupportedRawMutationError(dialect, kind string) *UnsupportedRawMutationError {
	return &UnsupportedRawMutationError{Dialect: dialect, Kind: kind}
}

// IsUnsupportedRawMutation returns true if the error is an UnsupportedRawMutationError.
func IsUnsupportedRawMutation(err error) bool {
	if err == nil {
		return false
	}
	var e *UnsupportedRawMutationError
	return errors.As(err, &e) || errors.Is(err, ErrUnsupportedRawMutation)
}

// ParameterResolutionError reports a parameter that failed to bind.
type ParameterResolutionError struct {
	Param string // Parameter name, or "?N" for unnamed positional parameters.
	Err   error  // Underlying cause.
}

// Error returns the error string.
func (e *ParameterResolutionError) Error() string {
	return fmt.Sprintf("derive: cannot resolve parameter %s: %v", e.Param, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParameterResolutionError) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches ErrParameterResolution.
func (e *ParameterResolutionError) Is(err error) bool {
	return err == ErrParameterResolution
}

// NewParameterResolutionError returns a new ParameterResolutionError.
func NewParameterResolutionError(param string, err error) *ParameterResolutionError {
	return &ParameterResolutionError{Param: param, Err: err}
}

// IsParameterResolution returns true if the error is a ParameterResolutionError.
func IsParameterResolution(err error) bool {
	if err == nil {
		return false
	}
	var e *ParameterResolutionError
	return errors.As(err, &e) || errors.Is(err, ErrParameterResolution)
}

// CriteriaError reports a criteria tree that breaks one of its invariants.
type CriteriaError struct {
	Entity string
	Reason string
}

// Error returns the error string.
func (e *CriteriaError) Error() string {
	return fmt.Sprintf("derive: invalid criteria for %s: %s", e.Entity, e.Reason)
}

// Is reports whether the target error matches ErrInvalidCriteria.
func (e *CriteriaError) Is(err error) bool {
	return err == ErrInvalidCriteria
}

// NewCriteriaError returns a new CriteriaError.
func NewCriteriaError(entity, reason string) *CriteriaError {
	return &CriteriaError{Entity: entity, Reason: reason}
}

// IsInvalidCriteria returns true if the error is a CriteriaError.
func IsInvalidCriteria(err error) bool {
	if err == nil {
		return false
	}
	var e *CriteriaError
	return errors.As(err, &e) || errors.Is(err, ErrInvalidCriteria)
}
