package random

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringUsesAlphabet(t *testing.T) {
	r := New()
	code := r.String(8, "ABC23")
	require.Len(t, code, 8)
	for _, c := range code {
		assert.True(t, strings.ContainsRune("ABC23", c), "unexpected %q", c)
	}
}

func TestStringEmptyInputs(t *testing.T) {
	r := New()
	assert.Empty(t, r.String(0, "ABC"))
	assert.Empty(t, r.String(4, ""))
}

func TestUUIDIsVersion4(t *testing.T) {
	id, err := uuid.Parse(New().UUID())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), id.Version())
}
