// ABOUTME: Tests for lead/support validation and dispatch
// ABOUTME: Verifies validation short-circuit, dual dispatch independence, title derivation

package submit

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yjar/chat-core/internal/api"
	"github.com/yjar/chat-core/internal/config"
	"github.com/yjar/chat-core/internal/identity"
)

type mockPoster struct {
	leads     []api.LeadRequest
	tickets   []api.SupportRequest
	leadErr   error
	ticketErr error
}

func (m *mockPoster) SubmitLead(ctx context.Context, req api.LeadRequest) error {
	m.leads = append(m.leads, req)
	return m.leadErr
}

func (m *mockPoster) SubmitSupport(ctx context.Context, req api.SupportRequest) error {
	m.tickets = append(m.tickets, req)
	return m.ticketErr
}

type mockTitler struct {
	answer      string
	err         error
	lastMessage string
}

func (m *mockTitler) Chat(ctx context.Context, sessionID, message string) (*api.ChatResponse, error) {
	m.lastMessage = message
	if m.err != nil {
		return nil, m.err
	}
	return &api.ChatResponse{Answer: m.answer}, nil
}

func newService(poster *mockPoster, titles TitleGenerator) *Service {
	cfg := config.Default()
	return New(poster, titles, cfg.Lead, cfg.Support, nil)
}

func validLead() LeadForm {
	return LeadForm{Name: "Erika", Email: "erika@example.com", Consent: true}
}

func validSupport() SupportForm {
	return SupportForm{Name: "Erika", Phone: "+49 30 123456", Consent: true}
}

func TestValidateLead(t *testing.T) {
	tests := []struct {
		name    string
		form    LeadForm
		wantErr bool
	}{
		{"valid", validLead(), false},
		{"valid without phone", LeadForm{Name: "E", Email: "e@x.de", Consent: true}, false},
		{"empty name", LeadForm{Email: "e@x.de", Consent: true}, true},
		{"whitespace name", LeadForm{Name: "  ", Email: "e@x.de", Consent: true}, true},
		{"empty email", LeadForm{Name: "E", Consent: true}, true},
		{"no consent", LeadForm{Name: "E", Email: "e@x.de"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLead(tt.form)
			if tt.wantErr {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateSupport(t *testing.T) {
	tests := []struct {
		name    string
		form    SupportForm
		wantErr bool
	}{
		{"valid with phone only", SupportForm{Name: "E", Phone: "123", Consent: true}, false},
		{"valid with email only", SupportForm{Name: "E", Email: "e@x.de", Consent: true}, false},
		{"no contact channel", SupportForm{Name: "E", Consent: true}, true},
		{"empty name", SupportForm{Email: "e@x.de", Consent: true}, true},
		{"no consent", SupportForm{Name: "E", Email: "e@x.de"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSupport(tt.form)
			if tt.wantErr {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestService_Lead_ValidationBlocksNetwork(t *testing.T) {
	poster := &mockPoster{}
	s := newService(poster, nil)

	err := s.Lead(context.Background(), "sess-1", LeadForm{Name: "E", Consent: true}, "msg")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email", verr.Field)
	// Zero network calls on validation failure
	assert.Empty(t, poster.leads)
	assert.Empty(t, poster.tickets)
}

func TestService_Lead_DualDispatch(t *testing.T) {
	poster := &mockPoster{}
	s := newService(poster, nil)

	err := s.Lead(context.Background(), "sess-1", validLead(), "Ich brauche ein Angebot")
	require.NoError(t, err)

	require.Len(t, poster.leads, 1)
	require.Len(t, poster.tickets, 1)

	lead := poster.leads[0]
	assert.Equal(t, identity.Hash("sess-1"), lead.SessionIDHash)
	assert.Equal(t, "website-chat", lead.Source)
	assert.Equal(t, "Ich brauche ein Angebot", lead.Message)
	assert.True(t, lead.Consent)

	ticket := poster.tickets[0]
	assert.Equal(t, "Lead: Ich brauche ein Angebot", ticket.TicketTitle)
}

func TestService_Lead_TicketFailureDoesNotBlockLead(t *testing.T) {
	poster := &mockPoster{ticketErr: errors.New("ticketing down")}
	s := newService(poster, nil)

	err := s.Lead(context.Background(), "sess-1", validLead(), "msg")
	require.NoError(t, err)
	assert.Len(t, poster.leads, 1)
}

func TestService_Lead_LeadFailureStillDispatchesTicket(t *testing.T) {
	poster := &mockPoster{leadErr: errors.New("lead store down")}
	s := newService(poster, nil)

	err := s.Lead(context.Background(), "sess-1", validLead(), "msg")
	require.Error(t, err)
	// No rollback, no coupling
	assert.Len(t, poster.tickets, 1)
}

func TestService_Lead_TitleTruncatedAt80(t *testing.T) {
	poster := &mockPoster{}
	s := newService(poster, nil)

	long := strings.Repeat("ä", 100)
	require.NoError(t, s.Lead(context.Background(), "sess-1", validLead(), long))

	require.Len(t, poster.tickets, 1)
	assert.Equal(t, "Lead: "+strings.Repeat("ä", 80), poster.tickets[0].TicketTitle)
}

func TestService_Lead_TitleFallbackWithoutMessage(t *testing.T) {
	poster := &mockPoster{}
	s := newService(poster, nil)

	require.NoError(t, s.Lead(context.Background(), "sess-1", validLead(), ""))

	require.Len(t, poster.tickets, 1)
	assert.Equal(t, "Lead aus Website-Chat", poster.tickets[0].TicketTitle)
}

func TestService_Support_GeneratedTitle(t *testing.T) {
	poster := &mockPoster{}
	titler := &mockTitler{answer: "  Login klappt nicht  "}
	s := newService(poster, titler)

	transcript := []api.Message{
		{Role: api.RoleUser, Content: "Hilfe"},
		{Role: api.RoleAssistant, Content: "Gern!"},
	}

	err := s.Support(context.Background(), "sess-1", validSupport(), "Login geht nicht", transcript)
	require.NoError(t, err)

	require.Len(t, poster.tickets, 1)
	ticket := poster.tickets[0]
	assert.Equal(t, "Login klappt nicht", ticket.TicketTitle)
	assert.Equal(t, identity.Hash("sess-1"), ticket.SessionIDHash)
	assert.Equal(t, []string{"user: Hilfe", "assistant: Gern!"}, ticket.LastMessages)
	// The title prompt goes through the chat collaborator
	assert.Contains(t, titler.lastMessage, "Login geht nicht")
}

func TestService_Support_TitleFallbackOnFailure(t *testing.T) {
	poster := &mockPoster{}
	titler := &mockTitler{err: errors.New("chat down")}
	s := newService(poster, titler)

	err := s.Support(context.Background(), "sess-1", validSupport(), "Hilfe", nil)
	require.NoError(t, err)

	require.Len(t, poster.tickets, 1)
	assert.Equal(t, "Support-Anfrage aus Website-Chat", poster.tickets[0].TicketTitle)
}

func TestService_Support_TitleFallbackOnEmptyAnswer(t *testing.T) {
	poster := &mockPoster{}
	titler := &mockTitler{answer: "   "}
	s := newService(poster, titler)

	require.NoError(t, s.Support(context.Background(), "sess-1", validSupport(), "Hilfe", nil))
	assert.Equal(t, "Support-Anfrage aus Website-Chat", poster.tickets[0].TicketTitle)
}

func TestService_Support_ValidationBlocksNetwork(t *testing.T) {
	poster := &mockPoster{}
	titler := &mockTitler{answer: "title"}
	s := newService(poster, titler)

	err := s.Support(context.Background(), "sess-1", SupportForm{Name: "E", Consent: true}, "Hilfe", nil)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, poster.tickets)
	// Not even the title generation runs before validation
	assert.Empty(t, titler.lastMessage)
}

func TestExcerpt_TailOnly(t *testing.T) {
	transcript := []api.Message{
		{Role: api.RoleUser, Content: "1"},
		{Role: api.RoleAssistant, Content: "2"},
		{Role: api.RoleUser, Content: "3"},
	}

	assert.Equal(t, []string{"assistant: 2", "user: 3"}, Excerpt(transcript, 2))
	assert.Len(t, Excerpt(transcript, 10), 3)
	assert.Nil(t, Excerpt(transcript, 0))
	assert.Nil(t, Excerpt(nil, 5))
}
