package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode_FatalClassification(t *testing.T) {
	fatal := []ErrorCode{
		ErrCodeGroupNotFound,
		ErrCodeConfigSetEmpty,
		ErrCodeConfigSelectionEmpty,
		ErrCodeTemplateSettingsMissing,
		ErrCodeInvalidEvent,
		ErrCodeInternalDB,
		ErrCodeInternalUnexpected,
	}
	for _, code := range fatal {
		assert.True(t, code.Fatal(), "%s must be fatal", code)
	}

	recoverable := []ErrorCode{
		ErrCodeTemplateNotFound,
		ErrCodePlaceholderNotFound,
		ErrCodeTransformFailed,
		ErrCodeRichContentNotFound,
	}
	for _, code := range recoverable {
		assert.False(t, code.Fatal(), "%s must be recoverable", code)
	}
}

func TestErrorCode_UnknownCodeDefaultsToFatal(t *testing.T) {
	assert.True(t, ErrorCode("something_new").Fatal())
}

func TestIsFatal(t *testing.T) {
	assert.False(t, IsFatal(nil))
	assert.True(t, IsFatal(errors.New("plain error")))
	assert.True(t, IsFatal(NewAppError(ErrCodeGroupNotFound, "missing", nil)))
	assert.False(t, IsFatal(NewAppError(ErrCodeTransformFailed, "slow", nil)))

	// Classification survives wrapping.
	wrapped := fmt.Errorf("stage: %w", NewAppError(ErrCodePlaceholderNotFound, "gone", nil))
	assert.False(t, IsFatal(wrapped))
}

func TestAppError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	err := NewAppError(ErrCodeInternalDB, "query failed", inner)

	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "internal_database_error: query failed", err.Error())
}
