package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundaryOrdering(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.Negative(t, Never().Compare(At(now)))
	assert.Negative(t, At(now).Compare(Unbounded()))
	assert.Negative(t, Never().Compare(Unbounded()))
	assert.Zero(t, At(now).Compare(At(now)))

	earlier := At(now.Add(-time.Hour))
	assert.Negative(t, earlier.Compare(At(now)))
}

func TestBoundarySentinelCollapse(t *testing.T) {
	assert.True(t, At(time.Time{}).IsNever())
	assert.True(t, At(time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)).IsNever())
	assert.True(t, At(time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)).IsUnbounded())

	real := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	assert.True(t, At(real).IsBounded())
	assert.Equal(t, real, At(real).Time())
}

func TestBoundaryMin(t *testing.T) {
	a := At(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	b := At(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, a, a.Min(b))
	assert.Equal(t, a, b.Min(a))

	// Never imposes no restriction
	assert.Equal(t, b, Never().Min(b))
	assert.Equal(t, b, b.Min(Never()))

	// Any bounded date is more restrictive than Unbounded
	assert.Equal(t, a, Unbounded().Min(a))
	assert.Equal(t, Unbounded(), Unbounded().Min(Unbounded()))
}

func TestBoundaryBefore(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, At(now.Add(-time.Second)).Before(now))
	assert.False(t, At(now).Before(now))
	assert.False(t, At(now.Add(time.Second)).Before(now))

	// Never and Unbounded are never "before" anything
	assert.False(t, Never().Before(now))
	assert.False(t, Unbounded().Before(now))
}

func TestBoundaryAddDays(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	shifted := At(base).AddDays(3)
	assert.Equal(t, base.AddDate(0, 0, 3), shifted.Time())

	assert.Equal(t, Never(), Never().AddDays(3))
	assert.Equal(t, Unbounded(), Unbounded().AddDays(3))
}

func TestBoundaryJSONRoundTrip(t *testing.T) {
	cases := []Boundary{
		Never(),
		Unbounded(),
		At(time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)),
	}

	for _, in := range cases {
		data, err := json.Marshal(in)
		require.NoError(t, err)

		var out Boundary
		require.NoError(t, json.Unmarshal(data, &out))
		assert.True(t, in.Equal(out), "round trip changed %s into %s", in, out)
	}
}

func TestBoundaryScan(t *testing.T) {
	var b Boundary
	require.NoError(t, b.Scan(nil))
	assert.True(t, b.IsNever())

	require.NoError(t, b.Scan(time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)))
	assert.True(t, b.IsUnbounded())

	require.Error(t, b.Scan("2025-06-01"))
}
