package validation

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation は入力値が不正な場合のエラー分類です。
	ErrValidation = errors.New("validation failed")
	// ErrInvalidState は現在の状態では操作が許可されない場合のエラー分類です。
	ErrInvalidState = errors.New("invalid state")
)

// ValidationError は項目単位の検証エラーを表します。
type ValidationError struct {
	Entity string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.Entity, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// StateError はライフサイクル上許可されない操作を表します。
type StateError struct {
	Entity    string
	Operation string
	State     string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: cannot %s in state %q", e.Entity, e.Operation, e.State)
}

func (e *StateError) Unwrap() error {
	return ErrInvalidState
}

// Invalid は ValidationError を生成します。
func Invalid(entity, field, reason string) error {
	return &ValidationError{Entity: entity, Field: field, Reason: reason}
}

// InvalidState は StateError を生成します。
func InvalidState(entity, operation, state string) error {
	return &StateError{Entity: entity, Operation: operation, State: state}
}

// WithEntity は ValidationError にエンティティ名を補完します。
func WithEntity(entity string, err error) error {
	var ve *ValidationError
	if errors.As(err, &ve) && ve.Entity == "" {
		return &ValidationError{Entity: entity, Field: ve.Field, Reason: ve.Reason}
	}
	return err
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}
