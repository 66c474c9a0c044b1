package errors

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound   = errors.New("record not found")
	ErrURLAlreadyExists = errors.New("URL already exists")
	ErrIDConflict       = errors.New("record ID already in use")
	ErrInvalidEmbedCode = errors.New("invalid iframe embed code")
	ErrInvalidURL       = errors.New("invalid URL")
	ErrInvalidID        = errors.New("invalid record ID")
	ErrInvalidStatus    = errors.New("invalid active status")
)

// Коды ошибок, которые отдаются клиенту в поле "error"
const (
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeAllocationFailed = "ALLOCATION_FAILED"
)

// ValidationError - ошибка валидации поля. Kind, если задан, один из Err*
// выше, чтобы вызывающий код мог проверить его через errors.Is.
type ValidationError struct {
	Field   string
	Message string
	Kind    error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error in field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func NewInvalidURLError(message string) *ValidationError {
	return &ValidationError{Field: "url", Message: message, Kind: ErrInvalidURL}
}

func NewInvalidIDError(id int64) *ValidationError {
	return &ValidationError{
		Field:   "id",
		Message: fmt.Sprintf("ID must be a positive integer, got %d", id),
		Kind:    ErrInvalidID,
	}
}

// NewInvalidStatusError: id <= 0 значит, что записи ещё нет
func NewInvalidStatusError(id int64, status int) *ValidationError {
	message := fmt.Sprintf("invalid status %d", status)
	if id > 0 {
		message = fmt.Sprintf("invalid status %d for ID %d", status, id)
	}
	return &ValidationError{Field: "activeStatus", Message: message, Kind: ErrInvalidStatus}
}

// BusinessError - ошибка хранилища или аллокации с кодом для клиента
type BusinessError struct {
	Code    string
	Message string
	Cause   error
}

func (e *BusinessError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Cause
}

func NewBusinessError(code, message string, cause error) *BusinessError {
	return &BusinessError{Code: code, Message: message, Cause: cause}
}

// NewStoreError оборачивает ошибку подключения или запроса к хранилищу
func NewStoreError(message string, cause error) *BusinessError {
	return NewBusinessError(CodeStoreUnavailable, message, cause)
}

// NewAllocationError - все попытки занять свободный id проиграли гонку
func NewAllocationError(attempts int) *BusinessError {
	return NewBusinessError(CodeAllocationFailed,
		fmt.Sprintf("failed to allocate record ID after %d attempts", attempts), ErrIDConflict)
}

// IsValidationError проверяет является ли ошибка ошибкой валидации
func IsValidationError(err error) bool {
	return GetValidationError(err) != nil
}

// IsStoreUnavailable проверяет, пришла ли ошибка от недоступного хранилища
func IsStoreUnavailable(err error) bool {
	businessErr := GetBusinessError(err)
	return businessErr != nil && businessErr.Code == CodeStoreUnavailable
}

// IsAllocationFailed проверяет, сдалась ли регистрация из-за конфликтов id
func IsAllocationFailed(err error) bool {
	businessErr := GetBusinessError(err)
	return businessErr != nil && businessErr.Code == CodeAllocationFailed
}

func GetValidationError(err error) *ValidationError {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr
	}
	return nil
}

// GetBusinessError извлекает BusinessError из ошибки
func GetBusinessError(err error) *BusinessError {
	var businessErr *BusinessError
	if errors.As(err, &businessErr) {
		return businessErr
	}
	return nil
}
