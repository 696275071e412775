package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Cause string `json:"cause"`
}

func TestParseJSONPlain(t *testing.T) {
	got, err := ParseJSON[payload](`{"cause": "accident"}`)
	require.NoError(t, err)
	assert.Equal(t, "accident", got.Cause)
}

func TestParseJSONFenced(t *testing.T) {
	got, err := ParseJSON[payload]("Here you go:\n```json\n{\"cause\": \"accident\"}\n```\nLet me know!")
	require.NoError(t, err)
	assert.Equal(t, "accident", got.Cause)
}

func TestParseJSONNoObject(t *testing.T) {
	_, err := ParseJSON[payload]("sorry, I cannot help with that")
	assert.Error(t, err)
}

func TestParseJSONMalformed(t *testing.T) {
	_, err := ParseJSON[payload](`{"cause": `)
	assert.Error(t, err)
}
