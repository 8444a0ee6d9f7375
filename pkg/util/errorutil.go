package util

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError standardizes application errors across the bot and ops
// surfaces. HTTPStatus is used by the ops server; the bot surface keys off
// Code when formatting the user-visible reply.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Error codes carried by DomainError.
const (
	CodeValidation          = "VALIDATION_FAILED"
	CodeNotFound            = "NOT_FOUND"
	CodeForbidden           = "FORBIDDEN"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeDuplicateTicket     = "DUPLICATE_TICKET"
	CodeInvalidCategory     = "INVALID_CATEGORY"
	CodeUserNotFound        = "USER_NOT_FOUND"
	CodeChannelProvisioning = "CHANNEL_PROVISIONING"
	CodeInternal            = "INTERNAL_ERROR"
)

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

// NewDuplicateTicket signals an already-open ticket for the same user and
// category. ChannelID points the user at the existing ticket channel.
func NewDuplicateTicket(channelID string) error {
	return NewDomainError(CodeDuplicateTicket,
		"you already have an open ticket in this category",
		http.StatusConflict,
		map[string]any{"channel_id": channelID})
}

func NewInvalidCategory(category string) error {
	return NewDomainError(CodeInvalidCategory,
		"invalid ticket type selected",
		http.StatusBadRequest,
		map[string]any{"category": category})
}

func NewUserNotFound(ref string) error {
	return NewDomainError(CodeUserNotFound,
		"could not resolve that user in this server",
		http.StatusNotFound,
		map[string]any{"ref": ref})
}

// NewChannelProvisioning wraps a channel create/edit/delete failure.
func NewChannelProvisioning(op string, err error) error {
	return &DomainError{
		Code:       CodeChannelProvisioning,
		Message:    fmt.Sprintf("channel %s failed", op),
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// Code returns the DomainError code for err, or INTERNAL_ERROR.
func Code(err error) string {
	return ToDomainError(err).Code
}
