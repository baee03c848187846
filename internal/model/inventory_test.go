package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectionScan(t *testing.T) {
	var d Direction
	require.NoError(t, d.Scan([]byte("OUT")))
	assert.Equal(t, DirectionOut, d)

	require.NoError(t, d.Scan("IN"))
	assert.Equal(t, DirectionIn, d)

	assert.Error(t, d.Scan("ADJ"))
	assert.Error(t, d.Scan(42))
}

func TestDirectionValue(t *testing.T) {
	v, err := DirectionIn.Value()
	require.NoError(t, err)
	assert.Equal(t, "IN", v)

	_, err = Direction("in").Value()
	assert.Error(t, err)
}
