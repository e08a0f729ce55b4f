package kuroko

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValue_Falsey(t *testing.T) {
	tests := []struct {
		name     string
		value    Value
		expected bool
	}{
		{"none", None(), true},
		{"false", Bool(false), true},
		{"true", Bool(true), false},
		{"zero int", Int(0), true},
		{"nonzero int", Int(1), false},
		{"zero float", Float(0.0), true},
		{"nonzero float", Float(0.5), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.value.Falsey())
		})
	}
}

func TestValue_Equals_CrossNumericPromotion(t *testing.T) {
	assert.True(t, Int(3).Equals(Float(3.0)))
	assert.True(t, Float(3.0).Equals(Int(3)))
	assert.False(t, Int(3).Equals(Float(3.1)))
	assert.True(t, None().Equals(None()))
	assert.False(t, None().Equals(Bool(false)))
}

func TestValue_Is_IdentityOnly(t *testing.T) {
	// Open Question #1: `is` is pure identity even for equal scalars of
	// the same kind, never cross-kind numeric promotion.
	assert.True(t, Int(3).Is(Int(3)))
	assert.False(t, Int(3).Is(Float(3.0)))
	assert.True(t, None().Is(None()))
}

func TestValue_Hash_ConsistentWithEquals(t *testing.T) {
	// §8 invariant: a == b implies hash(a) == hash(b), including across
	// the Int/Float promotion Equals grants.
	assert.Equal(t, Int(7).Hash(), Float(7.0).Hash())
	assert.NotEqual(t, Int(7).Hash(), Int(8).Hash())
}

func TestValue_TypeName(t *testing.T) {
	assert.Equal(t, "NoneType", None().TypeName())
	assert.Equal(t, "bool", Bool(true).TypeName())
	assert.Equal(t, "int", Int(1).TypeName())
	assert.Equal(t, "float", Float(1.5).TypeName())
}

func TestValue_String(t *testing.T) {
	assert.Equal(t, "None", None().String())
	assert.Equal(t, "True", Bool(true).String())
	assert.Equal(t, "False", Bool(false).String())
	assert.Equal(t, "3", Int(3).String())
}
