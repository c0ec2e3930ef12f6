package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IsTimeOrdered(t *testing.T) {
	a, b := New(), New()
	assert.Equal(t, 7, int(a.Version()))
	assert.Less(t, a.String(), b.String())
}

func TestParse(t *testing.T) {
	want := MustParse("01900000-0000-7000-8000-000000000001")

	got, err := Parse("  01900000-0000-7000-8000-000000000001\n")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = Parse("head-office")
	assert.Error(t, err)

	assert.True(t, IsNil(Nil()))
	assert.False(t, IsNil(want))
}
