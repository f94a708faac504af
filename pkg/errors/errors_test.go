package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestAppError_Format(t *testing.T) {
	cause := stderrors.New("disk full")

	if got := New(ErrStorage, "write failed", cause).Error(); got != "[STORAGE_ERROR] write failed: disk full" {
		t.Errorf("Error() = %q", got)
	}
	if got := New(ErrConfig, "missing key", nil).Error(); got != "[CONFIG_ERROR] missing key" {
		t.Errorf("Error() = %q", got)
	}
}

func TestCodeOf_WalksChain(t *testing.T) {
	cause := stderrors.New("boom")
	wrapped := fmt.Errorf("handler: %w", New(ErrTransferFailed, "transfer failed", cause))

	if got := CodeOf(wrapped); got != ErrTransferFailed {
		t.Errorf("CodeOf = %q, want %q", got, ErrTransferFailed)
	}
	if !Is(wrapped, ErrTransferFailed) || Is(wrapped, ErrGas) {
		t.Error("Is mismatch")
	}
	if !stderrors.Is(wrapped, cause) {
		t.Error("expected cause to be reachable through Unwrap")
	}
	if CodeOf(cause) != "" || CodeOf(nil) != "" {
		t.Error("expected empty code for plain errors")
	}
}
