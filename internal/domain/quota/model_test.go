package quota

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/vidinfra/tariffd/internal/types"
)

func q(seats, storage, rooms int64) Definition {
	return Definition{Seats: seats, StorageBytes: storage, RoomCount: rooms}
}

func TestScale(t *testing.T) {
	def := Definition{ID: 7, Seats: 5, StorageBytes: 100, RoomCount: 2}

	scaled := Scale(def, 3)
	assert.Equal(t, int64(15), scaled.Seats)
	assert.Equal(t, int64(300), scaled.StorageBytes)
	assert.Equal(t, int64(6), scaled.RoomCount)
	assert.Equal(t, 7, scaled.ID)

	// Quantity 0 zeroes limits but keeps the quota assigned
	zeroed := Scale(def, 0)
	assert.Equal(t, int64(0), zeroed.Seats)
	assert.Equal(t, 7, zeroed.ID)
}

func TestCombineIdentity(t *testing.T) {
	def := Definition{ID: 3, Name: "pro", Seats: 10, Trial: true}

	assert.Equal(t, def, Combine(ZeroQuota, def))
	assert.Equal(t, def, Combine(def, ZeroQuota))
	assert.Equal(t, ZeroQuota, Combine(ZeroQuota, ZeroQuota))
}

func TestCombineSumsLimits(t *testing.T) {
	out := Combine(q(5, 100, 1), q(3, 50, 2))

	assert.Equal(t, int64(8), out.Seats)
	assert.Equal(t, int64(150), out.StorageBytes)
	assert.Equal(t, int64(3), out.RoomCount)
}

func TestCombineFlags(t *testing.T) {
	a := Definition{Seats: 1, Trial: true, Wallet: true}
	b := Definition{Seats: 1, Lifetime: true, Wallet: false}

	out := Combine(a, b)
	assert.True(t, out.Trial)
	assert.True(t, out.Lifetime)
	// Wallet survives only when every operand is a wallet quota
	assert.False(t, out.Wallet)

	both := Combine(a, Definition{Seats: 1, Wallet: true})
	assert.True(t, both.Wallet)
}

func TestCombineDueDate(t *testing.T) {
	early := types.At(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	late := types.At(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	a := Definition{Seats: 1, DueDate: early}
	b := Definition{Seats: 1, DueDate: late}
	assert.True(t, Combine(a, b).DueDate.Equal(early))

	// Unset operand imposes no restriction
	c := Definition{Seats: 1}
	assert.True(t, Combine(c, b).DueDate.Equal(late))
}

func TestCombineCommutative(t *testing.T) {
	a := Definition{ID: 1, Seats: 5, StorageBytes: 10, Trial: true, Price: decimal.NewFromInt(10)}
	b := Definition{ID: 2, Seats: 3, RoomCount: 4, Lifetime: true, Price: decimal.NewFromInt(5)}

	ab := Combine(a, b)
	ba := Combine(b, a)
	assert.Equal(t, ab.Seats, ba.Seats)
	assert.Equal(t, ab.StorageBytes, ba.StorageBytes)
	assert.Equal(t, ab.RoomCount, ba.RoomCount)
	assert.Equal(t, ab.Trial, ba.Trial)
	assert.Equal(t, ab.Lifetime, ba.Lifetime)
	assert.True(t, ab.Price.Equal(ba.Price))
}

func TestCombineAssociative(t *testing.T) {
	a := q(1, 10, 1)
	b := q(2, 20, 0)
	c := q(4, 0, 3)

	left := Combine(Combine(a, b), c)
	right := Combine(a, Combine(b, c))
	assert.Equal(t, left, right)
}

func TestCombineResetsCatalogIdentity(t *testing.T) {
	a := Definition{ID: 1, Name: "basic", ProductID: "prod_a", Seats: 1, Price: decimal.NewFromInt(10)}
	b := Definition{ID: 2, Name: "addon", ProductID: "prod_b", Seats: 1, Price: decimal.NewFromInt(3)}

	out := Combine(a, b)
	assert.Zero(t, out.ID)
	assert.Empty(t, out.Name)
	assert.Empty(t, out.ProductID)
	assert.True(t, out.Price.Equal(decimal.NewFromInt(13)))
}
