// Package validate provides the primitive value validators used by the
// content engine. Each validator checks a raw decoded JSON value against a
// set of constraints and returns every violated constraint together with the
// coerced value. Validators never fail on bad input; a bad input is reported
// through the returned messages.
package validate

import (
	"regexp"
	"time"
)

// Rule is a single constraint value with an optional custom message. An
// empty Message means the validator's default message is used.
type Rule[T any] struct {
	Value   T
	Message string
}

// Is returns a constraint with the default message.
func Is[T any](v T) *Rule[T] {
	return &Rule[T]{Value: v}
}

// With returns a constraint with a custom message.
func With[T any](v T, message string) *Rule[T] {
	return &Rule[T]{Value: v, Message: message}
}

// message returns the custom message if set, otherwise the fallback.
func message[T any](r *Rule[T], fallback string) string {
	if r.Message != "" {
		return r.Message
	}
	return fallback
}

// Options is the constraint set shared by the scalar validators. A nil
// pointer means the constraint is not set. Min and Max bound string length
// for String and the value for Number; MinTime and MaxTime bound Date and
// DateTime.
type Options struct {
	Required     *Rule[bool]
	Unique       *Rule[bool]
	Min          *Rule[float64]
	Max          *Rule[float64]
	MinTime      *Rule[time.Time]
	MaxTime      *Rule[time.Time]
	Regex        *Rule[*regexp.Regexp]
	Choices      *Rule[[]string]
	MaxPrecision *Rule[int]
}

// IsRequired reports whether the required constraint is set and true.
func (o Options) IsRequired() bool {
	return o.Required != nil && o.Required.Value
}

// IsUnique reports whether the unique constraint is set and true. The
// validators never act on it; callers resolve uniqueness against the store.
func (o Options) IsUnique() bool {
	return o.Unique != nil && o.Unique.Value
}

// WithoutRequired returns a copy of o with the required constraint removed.
// List element checks use it so that required applies to the list only.
func (o Options) WithoutRequired() Options {
	o.Required = nil
	return o
}

// Kind selects the element validator of an array.
type Kind int

// Supported array element kinds. KindAny leaves elements unchecked.
const (
	KindAny Kind = iota
	KindString
	KindNumber
	KindDate
	KindDateTime
)

// ArrayOptions configures Array. Max bounds the number of elements and
// Unique requires distinct elements. Item is applied to each element
// according to Kind.
type ArrayOptions struct {
	Required *Rule[bool]
	Max      *Rule[float64]
	Unique   *Rule[bool]
	Kind     Kind
	Item     Options
}
