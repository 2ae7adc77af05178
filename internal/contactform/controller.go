// Package contactform submits the public contact form.
package contactform

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// 提交结果文案。
const (
	MsgReceived = "Message received! Game on!"
	MsgFailed   = "Error sending message. Please try again."
)

// Submitter posts the collected fields to the intake endpoint.
type Submitter interface {
	SubmitContact(ctx context.Context, fields map[string]string) error
}

// Form is the input surface the controller drives.
type Form interface {
	// Fields returns the current values as a flat map.
	Fields() map[string]string
	SetEnabled(enabled bool)
	SetStatus(text string, success bool)
	Reset()
}

// Controller sends the form and reports the outcome. Validation is left
// to the server.
type Controller struct {
	mu        sync.Mutex
	submitter Submitter
	form      Form
	logger    zerolog.Logger
}

// NewController creates a form controller.
func NewController(submitter Submitter, form Form, logger zerolog.Logger) *Controller {
	return &Controller{submitter: submitter, form: form, logger: logger}
}

// Submit sends the form. On failure the entered values are kept so the
// visitor can retry; on success the form is cleared.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.form.SetEnabled(false)
	defer c.form.SetEnabled(true)
	c.form.SetStatus("", true)

	if err := c.submitter.SubmitContact(ctx, c.form.Fields()); err != nil {
		c.logger.Error().Err(err).Msg("contact submission failed")
		c.form.SetStatus(MsgFailed, false)
		return err
	}

	c.form.SetStatus(MsgReceived, true)
	c.form.Reset()
	return nil
}
