package storefront

import (
	"context"
	"errors"
	"sync"

	"github.com/Kariqs/sweet-shop/apperror"
)

type FormState int

const (
	FormIdle FormState = iota
	FormSubmitting
	FormSuccess
	FormError
)

func (s FormState) String() string {
	switch s {
	case FormSubmitting:
		return "submitting"
	case FormSuccess:
		return "success"
	case FormError:
		return "error"
	default:
		return "idle"
	}
}

// ErrSubmitting is returned when a form is submitted twice concurrently.
var ErrSubmitting = errors.New("form is already submitting")

// Form tracks one submit control: idle, submitting, then success or error.
type Form struct {
	mu      sync.Mutex
	state   FormState
	message string
}

// Submit runs action unless a submission is already in flight. The returned
// message or error becomes the form's inline text.
func (f *Form) Submit(ctx context.Context, action func(context.Context) (string, error)) error {
	f.mu.Lock()
	if f.state == FormSubmitting {
		f.mu.Unlock()
		return ErrSubmitting
	}
	f.state = FormSubmitting
	f.message = ""
	f.mu.Unlock()

	message, err := action(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = FormError
		f.message = ErrorMessage(err)
		return err
	}
	f.state = FormSuccess
	f.message = message
	return nil
}

// Fail puts the form in the error state without running anything.
func (f *Form) Fail(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = FormError
	f.message = ErrorMessage(err)
	return err
}

func (f *Form) State() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Form) Message() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.message
}

// ErrorMessage is the text a page shows for err.
func ErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if typed := apperror.As(err); typed != nil {
		return typed.PublicMessage()
	}
	return "An error occurred. Please try again."
}
