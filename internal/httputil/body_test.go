package httputil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLimitedBody_WithinLimit(t *testing.T) {
	body, err := ReadLimitedBody(strings.NewReader("hello"), 10)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestReadLimitedBody_RejectsOversize(t *testing.T) {
	body, err := ReadLimitedBody(strings.NewReader("hello world"), 5)
	require.ErrorIs(t, err, ErrBodyTooLarge)
	assert.Equal(t, "hello", string(body))
}

func TestReadLimitedBody_UnlimitedWhenZero(t *testing.T) {
	body, err := ReadLimitedBody(strings.NewReader("anything goes"), 0)
	require.NoError(t, err)
	assert.Equal(t, "anything goes", string(body))
}
