package errors

import (
	stderrors "errors"
	"fmt"
)

type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// CodeOf 返回错误链中第一个 AppError 的错误码，不存在时返回空字符串
func CodeOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Is 判断错误链中是否包含指定错误码的 AppError
func Is(err error, code string) bool {
	return CodeOf(err) == code
}

var (
	ErrConfigLoad      = "CONFIG_LOAD_ERROR"
	ErrDatabaseConnect = "DATABASE_CONNECT_ERROR"
	ErrRPConnect       = "RPC_CONNECT_ERROR"
	ErrStorage         = "STORAGE_ERROR"

	ErrInvalidAddress       = "INVALID_ADDRESS"
	ErrRateLimited          = "RATE_LIMITED"
	ErrIPAlreadyClaimed     = "IP_ALREADY_CLAIMED"
	ErrWalletAlreadyClaimed = "WALLET_ALREADY_CLAIMED"
	ErrClaimInProgress      = "CLAIM_IN_PROGRESS"
	ErrConfig               = "CONFIG_ERROR"
	ErrInsufficientBalance  = "INSUFFICIENT_BALANCE"
	ErrGas                  = "GAS_ERROR"
	ErrTransferFailed       = "TRANSFER_FAILED"
)
