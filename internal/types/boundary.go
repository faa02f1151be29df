package types

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	ierr "github.com/vidinfra/tariffd/internal/errors"
)

// Boundary is a tagged optional timestamp used for tariff due dates.
// It replaces the legacy MinValue/MaxValue sentinel convention with three
// explicit states while preserving the original ordering semantics:
//
//	Never < At(t) < Unbounded   for every t
//
// Never means "never paid", Unbounded means "no expiration" (lifetime/free).
type Boundary struct {
	kind boundaryKind
	at   time.Time
}

type boundaryKind int8

const (
	boundaryNever boundaryKind = iota
	boundaryAt
	boundaryUnbounded
)

// Sentinel timestamps used on the wire and in the database so that rows stay
// readable by tooling that predates the Boundary type.
var (
	neverTime     = time.Time{}
	unboundedTime = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
)

func Never() Boundary     { return Boundary{kind: boundaryNever} }
func Unbounded() Boundary { return Boundary{kind: boundaryUnbounded} }

// At returns a bounded Boundary. Sentinel-valued timestamps collapse into
// their tagged equivalents so callers can feed provider data in directly.
func At(t time.Time) Boundary {
	if t.IsZero() || t.Year() <= 1 {
		return Never()
	}
	if t.Year() >= 9999 {
		return Unbounded()
	}
	return Boundary{kind: boundaryAt, at: t.UTC()}
}

func (b Boundary) IsNever() bool     { return b.kind == boundaryNever }
func (b Boundary) IsUnbounded() bool { return b.kind == boundaryUnbounded }

// IsSet reports whether the boundary carries any payment information at all.
func (b Boundary) IsSet() bool { return b.kind != boundaryNever }

// IsBounded reports whether the boundary is an actual timestamp.
func (b Boundary) IsBounded() bool { return b.kind == boundaryAt }

// Time maps the boundary back onto the sentinel timestamp convention.
func (b Boundary) Time() time.Time {
	switch b.kind {
	case boundaryNever:
		return neverTime
	case boundaryUnbounded:
		return unboundedTime
	default:
		return b.at
	}
}

// Compare orders boundaries with Never < At(t) < Unbounded.
func (b Boundary) Compare(other Boundary) int {
	return b.Time().Compare(other.Time())
}

func (b Boundary) Equal(other Boundary) bool {
	return b.kind == other.kind && b.Time().Equal(other.Time())
}

// Min returns the more restrictive of the two boundaries. An unset (Never)
// operand imposes no restriction and is the identity.
func (b Boundary) Min(other Boundary) Boundary {
	if !b.IsSet() {
		return other
	}
	if !other.IsSet() {
		return b
	}
	if b.Compare(other) <= 0 {
		return b
	}
	return other
}

// Before reports whether a bounded boundary lies strictly before t.
// Never and Unbounded are never "before" anything: Never carries no date and
// Unbounded lies past every t the engine will ever compare against.
func (b Boundary) Before(t time.Time) bool {
	return b.kind == boundaryAt && b.at.Before(t)
}

// AddDays shifts a bounded boundary by the given number of days.
func (b Boundary) AddDays(days int) Boundary {
	if b.kind != boundaryAt {
		return b
	}
	return Boundary{kind: boundaryAt, at: b.at.AddDate(0, 0, days)}
}

func (b Boundary) String() string {
	switch b.kind {
	case boundaryNever:
		return "never"
	case boundaryUnbounded:
		return "unbounded"
	default:
		return b.at.Format(time.RFC3339)
	}
}

func (b Boundary) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Time())
}

func (b *Boundary) UnmarshalJSON(data []byte) error {
	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return ierr.WithError(err).
			WithHint("invalid boundary timestamp").
			Mark(ierr.ErrValidation)
	}
	*b = At(t)
	return nil
}

// Value implements driver.Valuer, storing the sentinel timestamp.
func (b Boundary) Value() (driver.Value, error) {
	return b.Time(), nil
}

// Scan implements sql.Scanner.
func (b *Boundary) Scan(src interface{}) error {
	if src == nil {
		*b = Never()
		return nil
	}
	t, ok := src.(time.Time)
	if !ok {
		return ierr.NewError("unsupported boundary column type").
			WithHintf("cannot scan %T into Boundary", src).
			Mark(ierr.ErrValidation)
	}
	*b = At(t)
	return nil
}
