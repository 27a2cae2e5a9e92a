package core

import (
	"context"
	"fmt"
)

// SubmitState is the state of a detail or create surface.
type SubmitState int

const (
	Viewing SubmitState = iota
	Editing
	Submitting
)

func (s SubmitState) String() string {
	switch s {
	case Viewing:
		return "viewing"
	case Editing:
		return "editing"
	case Submitting:
		return "submitting"
	default:
		return fmt.Sprintf("SubmitState(%d)", int(s))
	}
}

// Flow names the editor a notification belongs to.
type Flow string

const (
	FlowEdit   Flow = "edit"
	FlowCreate Flow = "create"
)

// isAllowedTransition encodes the editor state machine:
//
//	Viewing    -> Editing              open edit / open create
//	Editing    -> Viewing | Submitting cancel / save
//	Submitting -> Viewing | Editing    success / failure
func isAllowedTransition(from, to SubmitState) bool {
	switch from {
	case Viewing:
		return to == Editing
	case Editing:
		return to == Viewing || to == Submitting
	case Submitting:
		return to == Viewing || to == Editing
	default:
		return false
	}
}

// Editor validates and submits one form. The same type drives the edit flow
// (targetID > 0, PUT) and the create flow (targetID == 0, POST).
//
// Editor is not safe for concurrent use; Console serializes access.
type Editor struct {
	flow      Flow
	state     SubmitState
	targetID  int
	form      FormInput
	fieldErr  *ValidationError
	submitErr error
	presenter Presenter
}

// NewEditor returns an editor in the Viewing state.
func NewEditor(flow Flow, presenter Presenter) *Editor {
	if presenter == nil {
		presenter = NopPresenter{}
	}
	return &Editor{flow: flow, presenter: presenter}
}

// State returns the current state.
func (e *Editor) State() SubmitState { return e.state }

// Flow returns the flow this editor serves.
func (e *Editor) Flow() Flow { return e.flow }

// TargetID returns the product being edited, or 0 for a create.
func (e *Editor) TargetID() int { return e.targetID }

// Form returns the form values. After a failed submit these are exactly the
// values the user entered.
func (e *Editor) Form() FormInput { return e.form }

// FieldError returns the last validation failure, if any.
func (e *Editor) FieldError() *ValidationError { return e.fieldErr }

// SubmitError returns the last remote failure, if any.
func (e *Editor) SubmitError() error { return e.submitErr }

func (e *Editor) transition(to SubmitState) error {
	if !isAllowedTransition(e.state, to) {
		return &InvalidTransitionError{Flow: e.flow, From: e.state, To: to}
	}
	e.state = to
	e.presenter.OnSubmitStateChanged(e.flow, to)
	return nil
}

// Begin opens the form with initial values (Viewing -> Editing). targetID is
// the product to update, or 0 to create.
func (e *Editor) Begin(targetID int, initial FormInput) error {
	if err := e.transition(Editing); err != nil {
		return err
	}
	e.targetID = targetID
	e.form = initial
	e.fieldErr = nil
	e.submitErr = nil
	return nil
}

// Cancel discards the edits and returns to Viewing. Cancelling an editor
// that is already Viewing is a no-op; a submit in flight cannot be
// cancelled.
func (e *Editor) Cancel() error {
	switch e.state {
	case Viewing:
		return nil
	case Submitting:
		return &InvalidTransitionError{Flow: e.flow, From: Submitting, To: Viewing}
	}
	if err := e.transition(Viewing); err != nil {
		return err
	}
	e.reset()
	return nil
}

// Reset forces the editor back to Viewing without notification. Used when
// the surface it belongs to goes away.
func (e *Editor) Reset() {
	e.state = Viewing
	e.reset()
}

func (e *Editor) reset() {
	e.targetID = 0
	e.form = FormInput{}
	e.fieldErr = nil
	e.submitErr = nil
}

// submission is a validated form ready to send.
type submission struct {
	targetID int
	fields   ProductFields
}

// send performs the remote call. It reads no editor state, so the caller
// may run it without holding the console lock.
func (s submission) send(ctx context.Context, data DataAccess) (Product, error) {
	if s.targetID > 0 {
		return data.UpdateProduct(ctx, s.targetID, s.fields)
	}
	return data.CreateProduct(ctx, s.fields)
}

// prepare validates in and moves the editor to Submitting. On a validation
// failure it stays Editing and returns the ValidationError.
func (e *Editor) prepare(in FormInput) (submission, error) {
	if e.state != Editing {
		return submission{}, &InvalidTransitionError{Flow: e.flow, From: e.state, To: Submitting}
	}

	e.form = in
	e.submitErr = nil

	res := Validate(in)
	if !res.Valid {
		e.fieldErr = res.Err
		e.presenter.OnValidationFailed(e.flow, res.Err.Field, res.Err.Message)
		return submission{}, *res.Err
	}
	e.fieldErr = nil

	if err := e.transition(Submitting); err != nil {
		return submission{}, err
	}
	return submission{targetID: e.targetID, fields: res.Fields}, nil
}

// complete applies the outcome of send: back to Editing with the form kept
// on failure, to Viewing on success.
func (e *Editor) complete(saved Product, err error) (Product, error) {
	if err != nil {
		e.submitErr = err
		if e.state == Submitting {
			_ = e.transition(Editing)
		}
		return Product{}, err
	}

	if e.state == Submitting {
		_ = e.transition(Viewing)
	}
	e.reset()
	return saved, nil
}

// Submit validates in and sends it to the remote API.
//
// On a validation failure nothing is sent, the editor stays Editing and the
// ValidationError is returned. On a remote failure the editor goes back to
// Editing with in preserved. On success it returns to Viewing with the
// record returned by the server.
func (e *Editor) Submit(ctx context.Context, data DataAccess, in FormInput) (Product, error) {
	sub, err := e.prepare(in)
	if err != nil {
		return Product{}, err
	}
	saved, err := sub.send(ctx, data)
	return e.complete(saved, err)
}
