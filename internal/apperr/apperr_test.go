package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderHidesCause(t *testing.T) {
	cause := errors.New("429 quota exceeded for key sk-123")
	err := Provider(cause)

	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Equal(t, "Internal server error", err.Message)
	assert.NotContains(t, err.Message, "sk-123")
	assert.ErrorIs(t, err, cause)
}

func TestIsSeesThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("create draft: %w", Storage(errors.New("disk full")))

	assert.True(t, Is(wrapped, CodeStorage))
	assert.False(t, Is(wrapped, CodeValidation))
	assert.False(t, Is(errors.New("plain"), CodeStorage))
}

func TestFrom(t *testing.T) {
	require.Nil(t, From(nil))

	v := Validation("Prompt is required")
	assert.Same(t, v, From(fmt.Errorf("refine: %w", v)))

	e := From(errors.New("boom"))
	assert.Equal(t, CodeInternal, e.Code)
	assert.Equal(t, http.StatusInternalServerError, e.Status)
}
