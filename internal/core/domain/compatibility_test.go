package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCompatible_FullTable(t *testing.T) {
	// rows: donor, columns: requested, in BloodTypes order
	// A+ A- B+ B- AB+ AB- O+ O-
	expected := map[BloodType][8]bool{
		BloodTypeAPos:  {true, false, false, false, true, false, false, false},
		BloodTypeANeg:  {true, true, false, false, true, true, false, false},
		BloodTypeBPos:  {false, false, true, false, true, false, false, false},
		BloodTypeBNeg:  {false, false, true, true, true, true, false, false},
		BloodTypeABPos: {false, false, false, false, true, false, false, false},
		BloodTypeABNeg: {false, false, false, false, false, true, false, false},
		BloodTypeOPos:  {true, false, true, false, true, false, true, false},
		BloodTypeONeg:  {true, true, true, true, true, true, true, true},
	}

	pairs := 0
	for _, donor := range BloodTypes {
		row, ok := expected[donor]
		if !assert.True(t, ok, "missing row for %s", donor) {
			continue
		}
		for i, requested := range BloodTypes {
			pairs++
			assert.Equal(t, row[i], IsCompatible(donor, requested), "donor %s -> requested %s", donor, requested)
		}
	}
	assert.Equal(t, 64, pairs)
}

func TestIsCompatible_Properties(t *testing.T) {
	t.Run("identical types always compatible", func(t *testing.T) {
		for _, bt := range BloodTypes {
			assert.True(t, IsCompatible(bt, bt), bt)
		}
	})

	t.Run("O- donates to every type", func(t *testing.T) {
		for _, bt := range BloodTypes {
			assert.True(t, IsCompatible(BloodTypeONeg, bt), bt)
		}
	})

	t.Run("AB+ donor only serves AB+", func(t *testing.T) {
		for _, bt := range BloodTypes {
			assert.Equal(t, bt == BloodTypeABPos, IsCompatible(BloodTypeABPos, bt), bt)
		}
	})

	t.Run("AB- donor only serves AB-", func(t *testing.T) {
		for _, bt := range BloodTypes {
			assert.Equal(t, bt == BloodTypeABNeg, IsCompatible(BloodTypeABNeg, bt), bt)
		}
	})

	t.Run("O+ serves only Rh-positive", func(t *testing.T) {
		for _, bt := range BloodTypes {
			positive := bt[len(bt)-1] == '+'
			assert.Equal(t, positive, IsCompatible(BloodTypeOPos, bt), bt)
		}
	})

	t.Run("unknown types never match", func(t *testing.T) {
		assert.False(t, IsCompatible("C+", BloodTypeAPos))
		assert.False(t, IsCompatible(BloodTypeONeg, "Z"))
		assert.False(t, IsCompatible("", ""))
	})
}

func TestBloodType_Valid(t *testing.T) {
	for _, bt := range BloodTypes {
		assert.True(t, bt.Valid())
	}
	assert.False(t, BloodType("a+").Valid())
	assert.False(t, BloodType("").Valid())
}
