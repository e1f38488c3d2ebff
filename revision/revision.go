// Package revision holds the ordered values used to tell newer entity updates
// from older ones, and the decoder that rebuilds them from a type name and a
// serialized string.
package revision

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrIncomparable is returned when two revisions of different kinds are compared
var ErrIncomparable = errors.New("revisions are of different kinds")

// Revision is an ordered value representing how new an entity state is
type Revision interface {
	// Compare returns a negative number if this revision is older than other,
	// zero if both are equal and a positive number if this revision is newer.
	Compare(other Revision) (int, error)
}

// Int64 is an integer revision, e.g. a sequence number of the upstream system
type Int64 int64

// Compare implements Revision
func (r Int64) Compare(other Revision) (int, error) {
	o, ok := other.(Int64)
	if !ok {
		return 0, incomparable(r, other)
	}

	switch {
	case r < o:
		return -1, nil
	case r > o:
		return 1, nil
	}
	return 0, nil
}

// Float64 is a floating point revision
type Float64 float64

// Compare implements Revision
func (r Float64) Compare(other Revision) (int, error) {
	o, ok := other.(Float64)
	if !ok {
		return 0, incomparable(r, other)
	}

	switch {
	case r < o:
		return -1, nil
	case r > o:
		return 1, nil
	}
	return 0, nil
}

// String is a lexically ordered revision
type String string

// Compare implements Revision
func (r String) Compare(other Revision) (int, error) {
	o, ok := other.(String)
	if !ok {
		return 0, incomparable(r, other)
	}
	return strings.Compare(string(r), string(o)), nil
}

// Decimal is an arbitrary precision revision. It accepts both quoted and
// unquoted JSON numbers.
type Decimal struct {
	decimal.Decimal
}

// Compare implements Revision
func (r Decimal) Compare(other Revision) (int, error) {
	o, ok := other.(Decimal)
	if !ok {
		return 0, incomparable(r, other)
	}
	return r.Cmp(o.Decimal), nil
}

// Time is a timestamp revision serialized as an RFC 3339 string
type Time struct {
	time.Time
}

// Compare implements Revision
func (r Time) Compare(other Revision) (int, error) {
	o, ok := other.(Time)
	if !ok {
		return 0, incomparable(r, other)
	}

	switch {
	case r.Before(o.Time):
		return -1, nil
	case r.After(o.Time):
		return 1, nil
	}
	return 0, nil
}

func incomparable(r, other Revision) error {
	return fmt.Errorf("compare %T with %T: %w", r, other, ErrIncomparable)
}
