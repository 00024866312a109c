// ABOUTME: ConversationController drives chat, lead and support flows
// ABOUTME: Intent-driven mode machine over the transcript; owns all in-memory state

package controller

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/yjar/chat-core/internal/api"
	"github.com/yjar/chat-core/internal/config"
	"github.com/yjar/chat-core/internal/history"
	"github.com/yjar/chat-core/internal/submit"
)

// Mode is the controller's current conversation mode. Exactly one is
// active at a time; lead and support modes are mutually exclusive.
type Mode string

const (
	ModeIdle                     Mode = "idle"
	ModeAwaitingLeadConfirmation Mode = "awaiting_lead_confirmation"
	ModeLeadFormOpen             Mode = "lead_form_open"
	ModeSupportFormOpen          Mode = "support_form_open"
	ModeLeadSubmitted            Mode = "lead_submitted"
	ModeSupportSubmitted         Mode = "support_submitted"
)

// ErrFormNotOpen is returned when a submission arrives without the
// matching form being open.
var ErrFormNotOpen = errors.New("no form open")

// Sessions defines what the controller needs from the session manager.
type Sessions interface {
	Ensure() string
	Reset() string
}

// Chatter defines what the controller needs from the chat collaborator.
type Chatter interface {
	Chat(ctx context.Context, sessionID, message string) (*api.ChatResponse, error)
}

// HistoryLoader defines what the controller needs from the history
// synchronizer.
type HistoryLoader interface {
	Load(ctx context.Context, sessionID string, current func() string) ([]api.Message, error)
}

// Submitter defines what the controller needs from the lead/support
// submitter.
type Submitter interface {
	Lead(ctx context.Context, sessionID string, form submit.LeadForm, lastUserMessage string) error
	Support(ctx context.Context, sessionID string, form submit.SupportForm, lastUserMessage string, transcript []api.Message) error
}

// Controller owns the transcript, the mode, and the form drafts for one
// page lifetime. Mode transitions happen only on a server intent, an
// explicit user action, or a submission outcome.
type Controller struct {
	sessions  Sessions
	chat      Chatter
	history   HistoryLoader
	submitter Submitter
	lead      config.LeadConfig
	support   config.SupportConfig
	logger    *slog.Logger

	mu              sync.Mutex
	sessionID       string
	messages        []api.Message
	mode            Mode
	pending         bool
	lastUserMessage string
	formError       string
	leadDraft       submit.LeadForm
	supportDraft    submit.SupportForm
}

// New creates a controller. cfg supplies the lead/support flow texts and
// the confirmation-gate variant.
func New(sessions Sessions, chat Chatter, loader HistoryLoader, submitter Submitter, cfg *config.Config, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		sessions:  sessions,
		chat:      chat,
		history:   loader,
		submitter: submitter,
		lead:      cfg.Lead,
		support:   cfg.Support,
		logger:    logger.With("component", "controller"),
		mode:      ModeIdle,
	}
}

// Start establishes the session and kicks off the history load. The load
// runs on its own goroutine; its result is applied only if the session it
// was issued for is still current.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.sessionID == "" {
		c.sessionID = c.sessions.Ensure()
	}
	c.mu.Unlock()

	go c.SyncHistory(ctx)
}

// SyncHistory loads the stored transcript for the current session and
// applies it, unless the session changed while the request was in flight.
func (c *Controller) SyncHistory(ctx context.Context) {
	c.mu.Lock()
	id := c.sessionID
	c.mu.Unlock()
	if id == "" {
		return
	}

	messages, err := c.history.Load(ctx, id, c.SessionID)
	if err != nil {
		if errors.Is(err, history.ErrStaleResponse) {
			c.logger.Debug("discarding stale history response", "session_id", id)
		}
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Re-check under the lock; the load raced with a possible reset
	if c.sessionID != id {
		return
	}
	// A message sent while the load was in flight wins over the stored
	// transcript; the next establishment will reconcile.
	if len(c.messages) > 0 {
		return
	}
	c.messages = messages
}

// Send appends the user message, asks the chat collaborator, appends the
// answer, and applies the declared intent. A transport failure is logged
// and otherwise invisible: the loading state clears, the transcript keeps
// the user message, the UI stays interactive.
func (c *Controller) Send(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	c.mu.Lock()
	if c.sessionID == "" {
		c.sessionID = c.sessions.Ensure()
	}
	id := c.sessionID
	c.messages = append(c.messages, api.Message{Role: api.RoleUser, Content: text})
	c.lastUserMessage = text
	c.pending = true
	c.mu.Unlock()

	resp, err := c.chat.Chat(ctx, id, text)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = false

	// The session rotated while the request was outstanding; the response
	// belongs to a conversation that no longer exists.
	if c.sessionID != id {
		return
	}

	if err != nil {
		c.logger.Warn("chat send failed", "session_id", id, "error", err)
		return
	}

	if resp.Answer != "" {
		c.messages = append(c.messages, api.Message{Role: api.RoleAssistant, Content: resp.Answer})
	}
	c.applyIntentLocked(resp.Intent)
}

// applyIntentLocked enters the mode the server-declared intent asks for.
// Must be called with mu held.
func (c *Controller) applyIntentLocked(intent api.Intent) {
	switch intent {
	case api.IntentLead:
		c.formError = ""
		if c.lead.Confirmation {
			c.mode = ModeAwaitingLeadConfirmation
			if c.lead.ConfirmPrompt != "" {
				c.messages = append(c.messages, api.Message{Role: api.RoleAssistant, Content: c.lead.ConfirmPrompt})
			}
		} else {
			c.mode = ModeLeadFormOpen
		}
	case api.IntentSupport:
		c.formError = ""
		c.mode = ModeSupportFormOpen
	default:
		// Unknown or absent intents close any open form
		c.mode = ModeIdle
	}
}

// ConfirmLead accepts the confirmation gate and opens the lead form.
// A no-op outside AwaitingLeadConfirmation.
func (c *Controller) ConfirmLead() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeAwaitingLeadConfirmation {
		return
	}
	c.mode = ModeLeadFormOpen
	if c.lead.ConfirmAck != "" {
		c.messages = append(c.messages, api.Message{Role: api.RoleAssistant, Content: c.lead.ConfirmAck})
	}
}

// DeclineLead rejects the confirmation gate and returns to Idle.
// A no-op outside AwaitingLeadConfirmation.
func (c *Controller) DeclineLead() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeAwaitingLeadConfirmation {
		return
	}
	c.mode = ModeIdle
	if c.lead.DeclineAck != "" {
		c.messages = append(c.messages, api.Message{Role: api.RoleAssistant, Content: c.lead.DeclineAck})
	}
}

// OpenSupport forces the support form open from any state, canceling a
// pending lead flow. This is the explicit "Support" UI action.
func (c *Controller) OpenSupport() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = ModeSupportFormOpen
	c.formError = ""
}

// SetLeadDraft stores the lead form field state.
func (c *Controller) SetLeadDraft(form submit.LeadForm) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leadDraft = form
}

// SetSupportDraft stores the support form field state.
func (c *Controller) SetSupportDraft(form submit.SupportForm) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.supportDraft = form
}

// SubmitLead dispatches the lead draft. On success the form closes, the
// acknowledgement joins the transcript, and the mode becomes
// LeadSubmitted. On any failure the form stays open and the error is
// surfaced locally for retry.
func (c *Controller) SubmitLead(ctx context.Context) error {
	c.mu.Lock()
	if c.mode != ModeLeadFormOpen {
		c.mu.Unlock()
		return ErrFormNotOpen
	}
	id := c.sessionID
	form := c.leadDraft
	last := c.lastUserMessage
	c.mu.Unlock()

	err := c.submitter.Lead(ctx, id, form, last)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.formError = err.Error()
		return err
	}
	if c.sessionID != id {
		return nil
	}
	c.mode = ModeLeadSubmitted
	c.formError = ""
	c.leadDraft = submit.LeadForm{}
	if c.lead.SubmitAck != "" {
		c.messages = append(c.messages, api.Message{Role: api.RoleAssistant, Content: c.lead.SubmitAck})
	}
	return nil
}

// SubmitSupport dispatches the support draft with the transcript tail as
// ticket context. Failure semantics match SubmitLead.
func (c *Controller) SubmitSupport(ctx context.Context) error {
	c.mu.Lock()
	if c.mode != ModeSupportFormOpen {
		c.mu.Unlock()
		return ErrFormNotOpen
	}
	id := c.sessionID
	form := c.supportDraft
	last := c.lastUserMessage
	transcript := make([]api.Message, len(c.messages))
	copy(transcript, c.messages)
	c.mu.Unlock()

	err := c.submitter.Support(ctx, id, form, last, transcript)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.formError = err.Error()
		return err
	}
	if c.sessionID != id {
		return nil
	}
	c.mode = ModeSupportSubmitted
	c.formError = ""
	c.supportDraft = submit.SupportForm{}
	if c.support.SubmitAck != "" {
		c.messages = append(c.messages, api.Message{Role: api.RoleAssistant, Content: c.support.SubmitAck})
	}
	return nil
}

// Reset rotates the session and clears everything scoped to the old one:
// transcript, mode, pending flag, form drafts and errors. A fresh history
// load is issued for the new session.
func (c *Controller) Reset(ctx context.Context) {
	c.mu.Lock()
	c.sessionID = c.sessions.Reset()
	c.messages = nil
	c.mode = ModeIdle
	c.pending = false
	c.lastUserMessage = ""
	c.formError = ""
	c.leadDraft = submit.LeadForm{}
	c.supportDraft = submit.SupportForm{}
	c.mu.Unlock()

	go c.SyncHistory(ctx)
}

// SessionID returns the current session id, or "" before Start.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// MessageAt returns the transcript message at index.
func (c *Controller) MessageAt(index int) (api.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.messages) {
		return api.Message{}, false
	}
	return c.messages[index], true
}

// Snapshot is a consistent copy of the controller state for frontends.
type Snapshot struct {
	SessionID    string
	Mode         Mode
	Messages     []api.Message
	Pending      bool
	FormError    string
	LeadDraft    submit.LeadForm
	SupportDraft submit.SupportForm
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	messages := make([]api.Message, len(c.messages))
	copy(messages, c.messages)

	return Snapshot{
		SessionID:    c.sessionID,
		Mode:         c.mode,
		Messages:     messages,
		Pending:      c.pending,
		FormError:    c.formError,
		LeadDraft:    c.leadDraft,
		SupportDraft: c.supportDraft,
	}
}
