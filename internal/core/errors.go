package core

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned when a mutating flow is started while another one
	// is still waiting on the remote API.
	ErrBusy = errors.New("request already in progress")

	// ErrNotFound is returned when a product id is not part of the current view.
	ErrNotFound = errors.New("product not found in current view")

	// ErrNoSelection is returned by detail operations when no detail is open.
	ErrNoSelection = errors.New("no product selected")

	// ErrInvalidPageSize is returned for page sizes below 1.
	ErrInvalidPageSize = errors.New("invalid page size")

	// ErrBadRequest is returned when a request body cannot be decoded.
	ErrBadRequest = errors.New("malformed request")
)

// NetworkError is a failed remote call: the request could not be sent, or
// the API answered with a non-success status.
type NetworkError struct {
	Op      string // list_products, list_categories, update_product, create_product
	Status  int    // HTTP status, 0 when the request never completed
	Message string // message extracted from the response body
	Err     error  // transport error, if any
}

func (e *NetworkError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.Status)
	}
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// DataShapeError is a success response whose body is not the expected shape.
type DataShapeError struct {
	Op  string
	Err error
}

func (e *DataShapeError) Error() string {
	return fmt.Sprintf("%s: unexpected response shape: %v", e.Op, e.Err)
}

func (e *DataShapeError) Unwrap() error {
	return e.Err
}

// InvalidTransitionError is returned by Editor for moves the state machine
// does not allow.
type InvalidTransitionError struct {
	Flow Flow
	From SubmitState
	To   SubmitState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s editor: invalid transition %s -> %s", e.Flow, e.From, e.To)
}
