package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := NewUndefinedStatuteError("Pay", "PayFees")
	assert.Equal(t, "UNDEFINED_STATUTE_ERROR: Statute 'Pay' not found (did you mean 'PayFees'?)", err.Error())

	statute, ok := err.GetContext("statute")
	assert.True(t, ok)
	assert.Equal(t, "Pay", statute)
}

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("division by zero")
	err := NewExpressionError("1 / 0", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "caused by: division by zero")
}

func TestIsMatchesKindThroughWrapping(t *testing.T) {
	err := fmt.Errorf("run failed: %w", NewStructuralError("missing END_LICENSE_AGREEMENT"))

	assert.True(t, stderrors.Is(err, Structural))
	assert.False(t, stderrors.Is(err, RecursionLimit))
	assert.True(t, IsErrorType(err, ErrStructural))
	assert.True(t, IsFatal(err))
}

func TestIsErrorTypeFollowsCauseChain(t *testing.T) {
	inner := NewFileNotFoundError("exhibit_a", []string{"exhibit_a", "exhibit_a.lspl"})
	err := NewEvidenceError("exhibit_a", inner)

	assert.True(t, IsErrorType(err, ErrEvidenceIO))
	assert.True(t, IsErrorType(err, ErrFileNotFound))
	assert.False(t, IsFatal(err))
	assert.Equal(t, ErrEvidenceIO, Kind(err))
}

func TestIsFatalOnlyLooksAtOutermostKind(t *testing.T) {
	nested := NewEvidenceError("exhibit_a", NewStructuralError("missing END_LICENSE_AGREEMENT"))
	assert.False(t, IsFatal(nested))
	assert.True(t, IsErrorType(nested, ErrStructural))

	assert.True(t, IsFatal(NewRecursionLimitError("statute call 'A'", 3)))
	assert.False(t, IsFatal(fmt.Errorf("plain")))
	assert.Equal(t, "", Kind(fmt.Errorf("plain")))
}
