package contracts

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullFloat(t *testing.T) {
	v, ok := Some(1.5).Get()
	assert.True(t, ok)
	assert.Equal(t, 1.5, v)

	_, ok = None().Get()
	assert.False(t, ok)

	// Non-finite values never become present
	assert.False(t, Some(math.NaN()).Valid())
	assert.False(t, Some(math.Inf(1)).Valid())
	assert.False(t, Some(math.Inf(-1)).Valid())

	assert.Equal(t, 0.0, Some(0).OrElse(-1), "zero is a present value")
	assert.Equal(t, -1.0, None().OrElse(-1))
}

func TestNullFloat_JSON(t *testing.T) {
	rec := map[string]NullFloat{"a": Some(2.25), "b": None()}

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2.25,"b":null}`, string(data))

	var back map[string]NullFloat
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, Some(2.25), back["a"])
	assert.False(t, back["b"].Valid())
}
