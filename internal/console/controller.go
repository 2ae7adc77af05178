// Package console drives the operator inbox: sign in, list messages, follow
// new ones, sign out.
package console

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/contact-desk/backend/internal/client"
	"github.com/zhouzirui/contact-desk/backend/internal/model/contact"
)

// EmptyInbox is rendered when the inbox has no messages.
const EmptyInbox = "No messages found in the archives."

// State of the console session.
type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
	Failed
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	ErrBusy             = errors.New("authentication already in progress")
	ErrNotAuthenticated = errors.New("not signed in")
	ErrAlreadySignedIn  = errors.New("already signed in")
)

// SessionManager acquires, restores and drops operator sessions.
type SessionManager interface {
	Login(ctx context.Context, username, password string) (client.Session, error)
	CurrentSession(ctx context.Context) (client.Session, error)
	Logout(ctx context.Context) error
}

// MessageSource reads the inbox with a session token.
type MessageSource interface {
	ListMessages(ctx context.Context, token string) ([]contact.Message, error)
	Follow(ctx context.Context, token string, onReady func(), onMessage func(contact.Message)) error
}

// View renders controller state.
type View interface {
	ShowLogin()
	// SetSubmitting disables the submit control while true. Entering the
	// submitting state also clears the previous login error.
	SetSubmitting(submitting bool)
	ShowLoginError(text string)
	ShowMessages(username string, messages []contact.Message)
	ShowEmpty(username, text string)
	ShowFetchError(text string)
	ShowLive(msg contact.Message)
	Reset()
}

// Controller is the operator session state machine.
type Controller struct {
	mu       sync.Mutex
	state    State
	session  client.Session
	sessions SessionManager
	source   MessageSource
	view     View
	logger   zerolog.Logger
}

// NewController creates a controller in the Anonymous state.
func NewController(sessions SessionManager, source MessageSource, view View, logger zerolog.Logger) *Controller {
	return &Controller{
		state:    Anonymous,
		sessions: sessions,
		source:   source,
		view:     view,
		logger:   logger,
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the active session, if any.
func (c *Controller) Session() (client.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session, c.state == Authenticated
}

// Load restores a prior session without user interaction, or shows the
// login view when there is none.
func (c *Controller) Load(ctx context.Context) State {
	session, err := c.sessions.CurrentSession(ctx)
	if err != nil {
		if !errors.Is(err, client.ErrNoSession) {
			c.logger.Warn().Err(err).Msg("could not restore session")
		}
		c.view.ShowLogin()
		return c.State()
	}

	c.mu.Lock()
	c.state = Authenticated
	c.session = session
	c.mu.Unlock()

	_ = c.fetch(ctx, session)
	return Authenticated
}

// Submit authenticates with the given credentials. A rejection moves the
// controller to Failed with the provider's reason shown verbatim; Failed
// accepts another Submit.
func (c *Controller) Submit(ctx context.Context, username, password string) error {
	c.mu.Lock()
	switch c.state {
	case Authenticating:
		c.mu.Unlock()
		return ErrBusy
	case Authenticated:
		c.mu.Unlock()
		return ErrAlreadySignedIn
	}
	c.state = Authenticating
	c.mu.Unlock()

	c.view.SetSubmitting(true)
	session, err := c.sessions.Login(ctx, username, password)
	if err != nil {
		c.mu.Lock()
		c.state = Failed
		c.mu.Unlock()

		c.view.ShowLoginError(rejectionText(err))
		c.view.SetSubmitting(false)
		return err
	}

	c.mu.Lock()
	c.state = Authenticated
	c.session = session
	c.mu.Unlock()
	c.view.SetSubmitting(false)

	_ = c.fetch(ctx, session)
	return nil
}

// Refresh re-reads the inbox. Failures are rendered inline and keep the
// session.
func (c *Controller) Refresh(ctx context.Context) error {
	session, ok := c.Session()
	if !ok {
		return ErrNotAuthenticated
	}
	return c.fetch(ctx, session)
}

// Follow renders newly accepted messages until ctx ends or the feed drops.
func (c *Controller) Follow(ctx context.Context, onReady func()) error {
	session, ok := c.Session()
	if !ok {
		return ErrNotAuthenticated
	}
	err := c.source.Follow(ctx, session.Token, onReady, c.view.ShowLive)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		c.view.ShowFetchError(fetchErrorText(err))
		return err
	}
	return nil
}

// SignOut drops the session locally and on the server and resets the view.
func (c *Controller) SignOut(ctx context.Context) error {
	c.mu.Lock()
	c.state = Anonymous
	c.session = client.Session{}
	c.mu.Unlock()

	err := c.sessions.Logout(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("server-side logout failed")
	}
	c.view.Reset()
	c.view.ShowLogin()
	return err
}

func (c *Controller) fetch(ctx context.Context, session client.Session) error {
	messages, err := c.source.ListMessages(ctx, session.Token)
	if err != nil {
		c.logger.Debug().Err(err).Msg("fetch messages failed")
		c.view.ShowFetchError(fetchErrorText(err))
		return err
	}
	if len(messages) == 0 {
		c.view.ShowEmpty(session.Username, EmptyInbox)
		return nil
	}
	c.view.ShowMessages(session.Username, messages)
	return nil
}

func rejectionText(err error) string {
	var rejection *client.RejectionError
	if errors.As(err, &rejection) && rejection.Reason != "" {
		return rejection.Reason
	}
	return err.Error()
}

func fetchErrorText(err error) string {
	var statusErr *client.StatusError
	if errors.As(err, &statusErr) {
		return "Error: Failed to fetch messages"
	}
	return "Error: " + err.Error()
}
