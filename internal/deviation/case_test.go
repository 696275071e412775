package deviation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidETA(t *testing.T) {
	assert.True(t, ValidETA("18:30"))
	assert.True(t, ValidETA("00:00"))
	assert.False(t, ValidETA("8:30"))
	assert.False(t, ValidETA("18:30:00"))
	assert.False(t, ValidETA("tomorrow"))
	assert.False(t, ValidETA(""))
}

func TestMissingOrder(t *testing.T) {
	c := NewCase("Dallas", "Houston", "14:00")
	assert.Equal(t, []Field{FieldCause, FieldRoute, FieldETA}, c.Missing())
	assert.False(t, c.Complete())

	c.Cause = "accident"
	c.NewETA = "18:30"
	assert.Equal(t, []Field{FieldRoute}, c.Missing())

	c.NewRoute = []string{"Austin"}
	assert.True(t, c.Complete())
	assert.Empty(t, c.Missing())
}

func TestAdoptFirstWriterWins(t *testing.T) {
	c := NewCase("Dallas", "Houston", "14:00")

	c.Adopt(Fields{Cause: "accident", NewETA: "18:30"})
	assert.Equal(t, "accident", c.Cause)
	assert.Equal(t, "18:30", c.NewETA)

	// A later extraction never overwrites a field that is already set.
	c.Adopt(Fields{Cause: "weather", NewRoute: []string{"Austin"}, NewETA: "20:00"})
	assert.Equal(t, "accident", c.Cause)
	assert.Equal(t, "18:30", c.NewETA)
	assert.Equal(t, []string{"Austin"}, c.NewRoute)
}

func TestAdoptDiscardsMalformedETA(t *testing.T) {
	c := NewCase("Dallas", "Houston", "14:00")
	c.Adopt(Fields{NewETA: "around six"})
	assert.Empty(t, c.NewETA)
	assert.Contains(t, c.Missing(), FieldETA)
}

func TestFieldsUnmarshalRouteAsList(t *testing.T) {
	var f Fields
	err := json.Unmarshal([]byte(`{"cause": "accident", "new_route": ["Austin", "San Antonio"], "new_eta": "18:30"}`), &f)
	require.NoError(t, err)
	assert.Equal(t, "accident", f.Cause)
	assert.Equal(t, []string{"Austin", "San Antonio"}, f.NewRoute)
	assert.Equal(t, "18:30", f.NewETA)
}

func TestFieldsUnmarshalRouteAsCommaString(t *testing.T) {
	var f Fields
	err := json.Unmarshal([]byte(`{"cause": null, "new_route": "Austin, San Antonio", "new_eta": null}`), &f)
	require.NoError(t, err)
	assert.Empty(t, f.Cause)
	assert.Equal(t, []string{"Austin", "San Antonio"}, f.NewRoute)
	assert.Empty(t, f.NewETA)
}

func TestFieldsUnmarshalMissingKeys(t *testing.T) {
	var f Fields
	err := json.Unmarshal([]byte(`{}`), &f)
	require.NoError(t, err)
	assert.True(t, f.Empty())
}

func TestFieldsUnmarshalDropsBadETA(t *testing.T) {
	var f Fields
	err := json.Unmarshal([]byte(`{"new_eta": "6pm"}`), &f)
	require.NoError(t, err)
	assert.Empty(t, f.NewETA)
}

func TestSplitRoute(t *testing.T) {
	assert.Equal(t, []string{"Austin", "Waco"}, SplitRoute(" Austin , Waco "))
	assert.Nil(t, SplitRoute(" , "))
}
