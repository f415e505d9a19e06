// Package wizard sequences the owner lead-capture steps, gates forward
// navigation on validation and runs the final submission.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"leadterm/internal/currency"
	"leadterm/internal/lead"
)

// Status is the submission state of a wizard session.
type Status int

const (
	StatusIdle Status = iota
	StatusSubmitting
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSubmitting:
		return "submitting"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Field names accepted by SetField.
type Field string

const (
	FieldName           Field = "name"
	FieldEmail          Field = "email"
	FieldPhone          Field = "phone"
	FieldPropertyType   Field = "propertyType"
	FieldEstimatedValue Field = "valorEstimado"
	FieldAddress        Field = "endereco"
	FieldNightlyRate    Field = "valorDiaria"
	FieldFurnishing     Field = "mobilia"
)

var (
	// ErrNotLastStep is returned by Submit before the last step is reached.
	ErrNotLastStep = errors.New("submit is only available on the last step")
	// ErrSubmitInFlight is returned while a previous Submit has not finished.
	ErrSubmitInFlight = errors.New("submission already in progress")
	// ErrAlreadySubmitted is returned after a successful submission.
	ErrAlreadySubmitted = errors.New("lead already submitted")
	// ErrIncomplete is returned when a step still fails validation.
	ErrIncomplete = errors.New("wizard incomplete")
)

// Submitter performs the remote write of a finished wizard.
type Submitter interface {
	Submit(ctx context.Context, fields lead.Fields) error
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, fields lead.Fields) error

// Submit implements Submitter.
func (f SubmitterFunc) Submit(ctx context.Context, fields lead.Fields) error {
	return f(ctx, fields)
}

// Controller owns the state of one wizard session. It is safe for concurrent
// use; Submit runs the remote call without holding the lock.
type Controller struct {
	id        string
	rules     Rules
	submitter Submitter

	mu       sync.Mutex
	step     int
	fields   lead.Fields
	status   Status
	err      error
	attempts int
}

// New starts a fresh session on step 1 with empty fields.
func New(submitter Submitter, rules Rules) *Controller {
	if rules.PhoneMinDigits <= 0 {
		rules.PhoneMinDigits = DefaultPhoneMinDigits
	}
	c := &Controller{
		id:        uuid.NewString(),
		rules:     rules,
		submitter: submitter,
		step:      StepContact,
	}
	log.Debug("wizard session started", "session", c.id)
	return c
}

// ID identifies the session in logs.
func (c *Controller) ID() string { return c.id }

// Rules returns the validation rules in use.
func (c *Controller) Rules() Rules { return c.rules }

// Step returns the current 1-based step index.
func (c *Controller) Step() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// IsLastStep reports whether the current step is the final one.
func (c *Controller) IsLastStep() bool {
	return c.Step() == StepCount
}

// Fields returns a copy of the collected fields.
func (c *Controller) Fields() lead.Fields {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fields.Clone()
}

// Status returns the submission status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Err returns the error of the last failed submission.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Attempts counts how many submissions reached the submitter.
func (c *Controller) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// SetField stores raw input for a text-entry field. Currency fields keep only
// the digits of raw, interpreted with the configured unit; input that does not
// fit an amount leaves the previous value in place. Categorical fields
// store the raw value verbatim and rely on step validation. Unknown names are
// ignored.
func (c *Controller) SetField(name Field, raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch name {
	case FieldName:
		c.fields.Name = raw
	case FieldEmail:
		c.fields.Email = raw
	case FieldPhone:
		c.fields.Phone = raw
	case FieldPropertyType:
		c.fields.PropertyType = lead.PropertyType(strings.TrimSpace(raw))
	case FieldEstimatedValue:
		if v, err := currency.Parse(raw, c.rules.ValueUnit); err == nil {
			c.fields.EstimatedValue = v
		} else {
			log.Debug("keeping previous amount", "session", c.id, "field", name, "err", err)
		}
	case FieldNightlyRate:
		if v, err := currency.Parse(raw, c.rules.RateUnit); err == nil {
			c.fields.NightlyRate = v
		} else {
			log.Debug("keeping previous amount", "session", c.id, "field", name, "err", err)
		}
	case FieldAddress:
		// typed by hand, so there are no coordinates
		c.fields.Address = lead.Address{Display: strings.TrimSpace(raw)}
	case FieldFurnishing:
		c.fields.Furnishing = lead.Furnishing(strings.TrimSpace(raw))
	default:
		log.Debug("ignoring unknown wizard field", "session", c.id, "field", name)
	}
}

// SelectAddress stores a geocoder candidate verbatim.
func (c *Controller) SelectAddress(a lead.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fields.Address = a
}

// TogglePlatform flips p, keeping "none" exclusive with the other platforms.
func (c *Controller) TogglePlatform(p lead.Platform) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fields.Platforms = lead.TogglePlatform(c.fields.Platforms, p)
}

// ValidateStep reports whether step i is complete. It has no side effects.
func (c *Controller) ValidateStep(i int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Validate(i, c.fields, c.rules)
}

// Problems lists what is missing from the current step.
func (c *Controller) Problems() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Problems(c.step, c.fields, c.rules)
}

// CanAdvance reports whether the continue control should be enabled.
func (c *Controller) CanAdvance() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step < StepCount && Validate(c.step, c.fields, c.rules)
}

// CanSubmit reports whether the submit control should be enabled.
func (c *Controller) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submittableLocked() == nil
}

// Advance moves to the next step when the current one is valid and reports
// whether the step changed.
func (c *Controller) Advance() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !Validate(c.step, c.fields, c.rules) || c.step >= StepCount {
		return false
	}
	c.step++
	return true
}

// Retreat moves to the previous step without validation and reports whether
// the step changed.
func (c *Controller) Retreat() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step <= StepContact {
		return false
	}
	c.step--
	return true
}

func (c *Controller) submittableLocked() error {
	switch c.status {
	case StatusSubmitting:
		return ErrSubmitInFlight
	case StatusSuccess:
		return ErrAlreadySubmitted
	}
	if c.step != StepCount {
		return ErrNotLastStep
	}
	for i := StepContact; i <= StepCount; i++ {
		if !Validate(i, c.fields, c.rules) {
			return fmt.Errorf("%w: step %d", ErrIncomplete, i)
		}
	}
	return nil
}

// Submit sends a snapshot of the fields to the submitter once. Calls made
// while a submission is in flight or after success return without reaching
// the submitter. A failed submission leaves the fields untouched and may be
// retried.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if err := c.submittableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.status = StatusSubmitting
	c.err = nil
	c.attempts++
	attempt := c.attempts
	snapshot := c.fields.Clone()
	c.mu.Unlock()

	log.Info("submitting lead", "session", c.id, "attempt", attempt)
	var err error
	if c.submitter == nil {
		err = errors.New("no submitter configured")
	} else {
		err = c.submitter.Submit(ctx, snapshot)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.status = StatusError
		c.err = err
		log.Warn("lead submission failed", "session", c.id, "attempt", attempt, "err", err)
		return err
	}
	c.status = StatusSuccess
	log.Info("lead submitted", "session", c.id, "attempt", attempt)
	return nil
}
