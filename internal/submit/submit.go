// ABOUTME: LeadSupportSubmitter validates and dispatches contact submissions
// ABOUTME: Lead dual dispatch, support title generation, transcript excerpt

package submit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yjar/chat-core/internal/api"
	"github.com/yjar/chat-core/internal/config"
	"github.com/yjar/chat-core/internal/identity"
)

// ValidationError reports a local form check failure. It blocks the
// submission before any network call and is always recoverable.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// LeadForm carries the lead capture fields.
type LeadForm struct {
	Name    string
	Email   string
	Phone   string
	Consent bool
}

// SupportForm carries the support ticket fields.
type SupportForm struct {
	Name    string
	Email   string
	Phone   string
	Consent bool
}

// ValidateLead checks the lead contract: name and email are required,
// phone is optional, consent must be given.
func ValidateLead(f LeadForm) error {
	if strings.TrimSpace(f.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if strings.TrimSpace(f.Email) == "" {
		return &ValidationError{Field: "email", Reason: "must not be empty"}
	}
	if !f.Consent {
		return &ValidationError{Field: "consent", Reason: "must be given"}
	}
	return nil
}

// ValidateSupport checks the support contract: name is required, at least
// one of email or phone is required, consent must be given.
func ValidateSupport(f SupportForm) error {
	if strings.TrimSpace(f.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if strings.TrimSpace(f.Email) == "" && strings.TrimSpace(f.Phone) == "" {
		return &ValidationError{Field: "contact", Reason: "email or phone required"}
	}
	if !f.Consent {
		return &ValidationError{Field: "consent", Reason: "must be given"}
	}
	return nil
}

// Poster is the slice of the api client the submitter dispatches through.
type Poster interface {
	SubmitLead(ctx context.Context, req api.LeadRequest) error
	SubmitSupport(ctx context.Context, req api.SupportRequest) error
}

// TitleGenerator asks the chat collaborator for a short ticket title.
// The raw session id is allowed here; only the chat endpoint sees it.
type TitleGenerator interface {
	Chat(ctx context.Context, sessionID, message string) (*api.ChatResponse, error)
}

// Service implements the lead and support submission paths.
type Service struct {
	poster  Poster
	titles  TitleGenerator
	lead    config.LeadConfig
	support config.SupportConfig
	logger  *slog.Logger
}

// New creates a submitter. titles may be nil to disable machine-generated
// ticket titles; the configured fallback is used instead.
func New(poster Poster, titles TitleGenerator, lead config.LeadConfig, support config.SupportConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		poster:  poster,
		titles:  titles,
		lead:    lead,
		support: support,
		logger:  logger.With("component", "submit"),
	}
}

// Lead validates, pseudonymizes, and dispatches a lead to the lead-storage
// endpoint and, independently, a ticket to the ticketing endpoint. The
// two dispatches are not coupled: the ticket is best-effort and its
// failure is only logged. The lead-storage outcome is the caller's result.
func (s *Service) Lead(ctx context.Context, sessionID string, form LeadForm, lastUserMessage string) error {
	if err := ValidateLead(form); err != nil {
		return err
	}

	hash := identity.Hash(sessionID)

	leadErr := s.poster.SubmitLead(ctx, api.LeadRequest{
		SessionIDHash: hash,
		Name:          strings.TrimSpace(form.Name),
		Email:         strings.TrimSpace(form.Email),
		Phone:         strings.TrimSpace(form.Phone),
		Message:       lastUserMessage,
		Source:        s.lead.Source,
		Consent:       form.Consent,
	})

	if err := s.poster.SubmitSupport(ctx, api.SupportRequest{
		SessionIDHash: hash,
		Name:          strings.TrimSpace(form.Name),
		Email:         strings.TrimSpace(form.Email),
		Phone:         strings.TrimSpace(form.Phone),
		Message:       lastUserMessage,
		TicketTitle:   s.leadTitle(lastUserMessage),
		Consent:       form.Consent,
	}); err != nil {
		s.logger.Warn("lead ticket dispatch failed", "error", err)
	}

	return leadErr
}

// Support validates, pseudonymizes, and dispatches a single ticket with a
// generated title and the tail of the transcript as context.
func (s *Service) Support(ctx context.Context, sessionID string, form SupportForm, lastUserMessage string, transcript []api.Message) error {
	if err := ValidateSupport(form); err != nil {
		return err
	}

	return s.poster.SubmitSupport(ctx, api.SupportRequest{
		SessionIDHash: identity.Hash(sessionID),
		Name:          strings.TrimSpace(form.Name),
		Email:         strings.TrimSpace(form.Email),
		Phone:         strings.TrimSpace(form.Phone),
		Message:       lastUserMessage,
		LastMessages:  Excerpt(transcript, s.support.HistoryLines),
		TicketTitle:   s.supportTitle(ctx, sessionID, lastUserMessage),
		Consent:       form.Consent,
	})
}

// leadTitle derives the ticket title from the last user message: the
// configured prefix plus the first 80 characters, or the generic fallback
// when there is no message to derive from.
func (s *Service) leadTitle(lastUserMessage string) string {
	msg := strings.TrimSpace(lastUserMessage)
	if msg == "" {
		return s.lead.TitleFallback
	}
	if runes := []rune(msg); len(runes) > 80 {
		msg = string(runes[:80])
	}
	return s.lead.TitlePrefix + msg
}

// supportTitle asks the chat collaborator for a short title, best-effort.
// Empty or failed generation falls back to the configured generic title.
func (s *Service) supportTitle(ctx context.Context, sessionID, lastUserMessage string) string {
	if s.titles == nil || s.support.TitlePrompt == "" || strings.TrimSpace(lastUserMessage) == "" {
		return s.support.TitleFallback
	}

	resp, err := s.titles.Chat(ctx, sessionID, s.support.TitlePrompt+lastUserMessage)
	if err != nil {
		s.logger.Warn("ticket title generation failed", "error", err)
		return s.support.TitleFallback
	}
	if title := strings.TrimSpace(resp.Answer); title != "" {
		return title
	}
	return s.support.TitleFallback
}

// Excerpt renders the last n transcript messages as role-prefixed lines.
func Excerpt(transcript []api.Message, n int) []string {
	if n <= 0 || len(transcript) == 0 {
		return nil
	}
	start := len(transcript) - n
	if start < 0 {
		start = 0
	}
	lines := make([]string, 0, len(transcript)-start)
	for _, m := range transcript[start:] {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}
	return lines
}
