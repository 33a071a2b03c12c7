package errs

import (
	"errors"
	"fmt"
)

// Sentinelas usadas pelos serviços; a camada HTTP mapeia para status codes.
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicate    = errors.New("already exists")
	ErrNotConnected = errors.New("session not connected")
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError representa entrada malformada (400)
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// LimitExceededError representa um limite de conta ou de mensagens (403/429)
type LimitExceededError struct {
	Resource string
	Current  int
	Limit    int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("%s limit reached (%d/%d)", e.Resource, e.Current, e.Limit)
}

func LimitExceeded(resource string, current, limit int) error {
	return &LimitExceededError{Resource: resource, Current: current, Limit: limit}
}

func AsLimitExceeded(err error) (*LimitExceededError, bool) {
	var le *LimitExceededError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// TransientError marca falhas elegíveis para retry com backoff
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient indica se o erro pode ser tentado novamente.
// Erros não reconhecidos são tratados como fatais para a operação corrente.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
