package core

// Error codes reference.
//
// This file defines user-friendly error messages with codes for support
// reference. Typed errors are matched first (errors.As), then the error text
// is matched against patterns.
//
// # Network Errors (NET001-NET099)
//
//	NET001 - Rejected: The catalog API rejected the request (HTTP 4xx)
//	         Action: Check the entered values and try again
//
//	NET002 - Server error: The catalog API failed to process the request (HTTP 5xx)
//	         Action: Please try again in a few moments
//
//	NET003 - Unreachable: Unable to reach the catalog API
//	         Action: Check your connection and retry
//	         Patterns: "connection refused", "no such host", "network error"
//
//	NET004 - Timeout: The catalog API did not answer in time
//	         Action: Please retry
//	         Patterns: "context deadline exceeded", "timeout"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Title is required            (field "title")
//	VAL002 - Price must be a number >= 0  (field "price")
//	VAL003 - Description is required      (field "description")
//	VAL004 - Category id is invalid       (field "categoryId")
//	VAL005 - At least one image URL       (field "images")
//
// # Data Errors (DATA001-DATA099)
//
//	DATA001 - Unexpected response: The catalog API answered with an unexpected shape
//	          Action: The result was treated as empty; retry or contact support
//
// # Console Errors (UI001-UI099)
//
//	UI001 - Busy: A request is already in progress
//	UI002 - Not found: The product is not on the current page
//	UI003 - No selection: No product is open
//	UI004 - Page size: Invalid page size
//	UI005 - Transition: The form is not in a state that allows this action
//	UI006 - Bad request: The request could not be read
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Rate limited: Too many requests
//	          Patterns: "too many concurrent", "rate limit"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support

import (
	"errors"
	"net/http"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgRejected = UserMessage{
		Message: "The catalog API rejected the request",
		Action:  "Check the entered values and try again",
		Code:    "NET001",
	}
	msgServerError = UserMessage{
		Message: "The catalog API failed to process the request",
		Action:  "Please try again in a few moments",
		Code:    "NET002",
	}
	msgUnreachable = UserMessage{
		Message: "Unable to reach the catalog API",
		Action:  "Check your connection and retry",
		Code:    "NET003",
	}
	msgTimeout = UserMessage{
		Message: "The catalog API did not answer in time",
		Action:  "Please retry",
		Code:    "NET004",
	}
	msgShape = UserMessage{
		Message: "The catalog API answered with an unexpected shape",
		Action:  "The result was treated as empty; retry or contact support",
		Code:    "DATA001",
	}
	msgRateLimited = UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}
)

// fieldMessages maps validation fields to their codes.
var fieldMessages = map[string]UserMessage{
	FieldTitle: {
		Message: "Title is required",
		Action:  "Enter a title",
		Code:    "VAL001",
	},
	FieldPrice: {
		Message: "Price must be a number greater than or equal to 0",
		Action:  "Enter a price such as 19.99",
		Code:    "VAL002",
	},
	FieldDescription: {
		Message: "Description is required",
		Action:  "Enter a description",
		Code:    "VAL003",
	},
	FieldCategoryID: {
		Message: "Category id is invalid",
		Action:  "Pick a category from the list",
		Code:    "VAL004",
	},
	FieldImages: {
		Message: "At least one image URL is required",
		Action:  "Enter one image URL per line",
		Code:    "VAL005",
	},
}

// sentinelMessages maps console sentinel errors to user messages.
var sentinelMessages = []struct {
	err error
	msg UserMessage
}{
	{ErrBusy, UserMessage{Message: "A request is already in progress", Action: "Wait for it to finish", Code: "UI001"}},
	{ErrNotFound, UserMessage{Message: "The product is not on the current page", Action: "Reload the page and try again", Code: "UI002"}},
	{ErrNoSelection, UserMessage{Message: "No product is open", Action: "Open a product first", Code: "UI003"}},
	{ErrInvalidPageSize, UserMessage{Message: "Invalid page size", Action: "Pick one of the offered page sizes", Code: "UI004"}},
	{ErrBadRequest, UserMessage{Message: "The request could not be read", Action: "Reload the page and submit the form again", Code: "UI006"}},
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
// The first matching pattern wins, so more specific patterns come first.
var errorPatterns = []errorPattern{
	{pattern: "too many concurrent", msg: msgRateLimited},
	{pattern: "context deadline exceeded", msg: msgTimeout},
	{pattern: "timeout", msg: msgTimeout},
	{pattern: "connection refused", msg: msgUnreachable},
	{pattern: "no such host", msg: msgUnreachable},
	{pattern: "network error", msg: msgUnreachable},
	{pattern: "unexpected response shape", msg: msgShape},
	{pattern: "rate limit", msg: msgRateLimited},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message.
//
// Example:
//
//	msg := MapError(&NetworkError{Op: "list_products", Status: 503})
//	// msg.Code == "NET002"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ve ValidationError
	if errors.As(err, &ve) {
		if msg, ok := fieldMessages[ve.Field]; ok {
			return msg
		}
	}

	var shape *DataShapeError
	if errors.As(err, &shape) {
		return msgShape
	}

	var ne *NetworkError
	if errors.As(err, &ne) {
		switch {
		case ne.Status >= http.StatusInternalServerError:
			return msgServerError
		case ne.Status == http.StatusTooManyRequests:
			return msgRateLimited
		case ne.Status >= http.StatusBadRequest:
			return msgRejected
		}
		// Transport failures fall through to the patterns below.
	}

	var te *InvalidTransitionError
	if errors.As(err, &te) {
		return UserMessage{
			Message: "The form is not in a state that allows this action",
			Action:  "Reload the page",
			Code:    "UI005",
		}
	}

	for _, s := range sentinelMessages {
		if errors.Is(err, s.err) {
			return s.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	if ne != nil {
		return msgUnreachable
	}
	return defaultMessage
}

// IsUserFacing reports whether err maps to a specific message rather than
// the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
