package services

import (
	"errors"
	"fmt"

	"github.com/iyunix/go-chatstats/internal/repository/history"
)

type ErrorType string

const (
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeStorage    ErrorType = "STORAGE"
	ErrTypeNotFound   ErrorType = "NOT_FOUND"
)

// HistoryError is returned by the history and stats services.
type HistoryError struct {
	Type      ErrorType
	Operation string
	Message   string
	ChatID    int64
	Cause     error
}

func (e *HistoryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("history %s error in %s: %s (caused by: %v)",
			e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("history %s error in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *HistoryError) Unwrap() error {
	return e.Cause
}

func NewValidationError(operation, msg string) *HistoryError {
	return &HistoryError{Type: ErrTypeValidation, Operation: operation, Message: msg}
}

func NewStorageError(operation string, chatID int64, cause error) *HistoryError {
	return &HistoryError{
		Type:      ErrTypeStorage,
		Operation: operation,
		Message:   "storage failure",
		ChatID:    chatID,
		Cause:     cause,
	}
}

func NewNotFoundError(operation, msg string, chatID int64) *HistoryError {
	return &HistoryError{Type: ErrTypeNotFound, Operation: operation, Message: msg, ChatID: chatID}
}

// ErrorTypeOf reports the type of a HistoryError anywhere in err's chain.
// Other errors are treated as storage failures.
func ErrorTypeOf(err error) ErrorType {
	var herr *HistoryError
	if errors.As(err, &herr) {
		return herr.Type
	}
	return ErrTypeStorage
}

func IsValidation(err error) bool {
	return err != nil && ErrorTypeOf(err) == ErrTypeValidation
}

func IsNotFound(err error) bool {
	return err != nil && ErrorTypeOf(err) == ErrTypeNotFound
}

// repositoryError classifies a repository failure for the caller.
func repositoryError(logger Logger, op string, chatID int64, err error) error {
	if errors.Is(err, history.ErrInvalidChatID) {
		return NewValidationError(op, "chat_id must not be zero")
	}
	logger.Error("history query failed", "operation", op, "chat_id", chatID, "error", err)
	return NewStorageError(op, chatID, err)
}
