package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanError(t *testing.T) {
	t.Run("message includes code and target", func(t *testing.T) {
		err := NewScanErrorWithTarget(CodeTargetInvalid, "Invalid target specification", "10.0.0.")
		assert.Equal(t, "[TARGET_INVALID] Invalid target specification (target: 10.0.0.)", err.Error())
	})

	t.Run("message without target", func(t *testing.T) {
		err := NewScanError(CodeSessionBusy, "busy")
		assert.Equal(t, "[SESSION_BUSY] busy", err.Error())
	})

	t.Run("wrapping preserves the cause", func(t *testing.T) {
		cause := fmt.Errorf("exit status 1")
		err := WrapScanError(CodeScanFailed, "Scanner exited abnormally", cause)
		assert.True(t, stderrors.Is(err, cause))
	})
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{name: "scan error", err: NewScanError(CodeScanFailed, "x"), want: CodeScanFailed},
		{name: "database error", err: NewDatabaseError(CodeConflict, "x"), want: CodeConflict},
		{name: "config error", err: NewConfigFieldError(CodeConfiguration, "x", "f", nil), want: CodeConfiguration},
		{name: "plain error", err: fmt.Errorf("x"), want: CodeUnknown},
		{name: "nil", err: nil, want: CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetCode(tt.err))
			assert.True(t, IsCode(tt.err, tt.want))
		})
	}
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(ErrScannerMissing("nmap")))
	assert.True(t, IsFatal(NewDatabaseError(CodeDatabaseConnection, "down")))
	assert.True(t, IsFatal(NewConfigFieldError(CodeConfiguration, "bad", "f", nil)))

	assert.False(t, IsFatal(NewScanError(CodeScanFailed, "x")))
	assert.False(t, IsFatal(NewDatabaseError(CodeConflict, "x")))
	assert.False(t, IsFatal(fmt.Errorf("plain")))
}

func TestConstructors(t *testing.T) {
	t.Run("scanner missing names the binary", func(t *testing.T) {
		err := ErrScannerMissing("nmap")
		assert.Equal(t, CodeScannerMissing, err.Code)
		assert.Contains(t, err.Message, `"nmap"`)
	})

	t.Run("session busy", func(t *testing.T) {
		assert.Equal(t, CodeSessionBusy, ErrSessionBusy().Code)
	})

	t.Run("invalid target carries the target", func(t *testing.T) {
		err := ErrInvalidTarget("999.999.0.1")
		assert.Equal(t, CodeTargetInvalid, err.Code)
		assert.Equal(t, "999.999.0.1", err.Target)
	})

	t.Run("database connection wraps cause", func(t *testing.T) {
		cause := fmt.Errorf("dial tcp: refused")
		err := ErrDatabaseConnection(cause)
		require.Equal(t, CodeDatabaseConnection, err.Code)
		assert.True(t, stderrors.Is(err, cause))
	})
}
