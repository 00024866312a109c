// ABOUTME: Wire types for the collaborator endpoints
// ABOUTME: Mirrors the JSON contracts, including the legacy history record shape

package api

// Role identifies the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Intent is the server-classified purpose of the latest exchange. It
// drives which mode the controller enters.
type Intent string

const (
	IntentLead    Intent = "lead"
	IntentSupport Intent = "support"
	IntentOther   Intent = "other"
)

// Vote is a thumbs rating for an assistant message.
type Vote string

const (
	VoteUp   Vote = "up"
	VoteDown Vote = "down"
)

// Message is one transcript entry. Timestamp is epoch millis when the
// collaborator provides one, zero otherwise.
type Message struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

// ChatResponse carries the assistant answer. A missing or unknown intent
// is treated as "other" by the controller.
type ChatResponse struct {
	Answer string `json:"answer"`
	Intent Intent `json:"intent,omitempty"`
}

type historyRequest struct {
	SessionID string `json:"sessionId"`
}

// historyRecord accepts both payload shapes the history endpoint has
// shipped: the direct message form and the legacy paired-record form
// {userMessage, botAnswer, createdAt}. A record with a role is direct;
// anything else is legacy.
type historyRecord struct {
	Role        Role   `json:"role"`
	Content     string `json:"content"`
	Timestamp   int64  `json:"timestamp"`
	UserMessage string `json:"userMessage"`
	BotAnswer   string `json:"botAnswer"`
}

type historyResponse struct {
	Messages []historyRecord `json:"messages"`
}

// expand normalizes the payload to an ordered Message slice. Each legacy
// record yields exactly two messages, user then assistant.
func (r historyResponse) expand() []Message {
	out := make([]Message, 0, len(r.Messages))
	for _, rec := range r.Messages {
		if rec.Role != "" {
			out = append(out, Message{Role: rec.Role, Content: rec.Content, Timestamp: rec.Timestamp})
			continue
		}
		out = append(out,
			Message{Role: RoleUser, Content: rec.UserMessage},
			Message{Role: RoleAssistant, Content: rec.BotAnswer},
		)
	}
	return out
}

// FeedbackRequest is the vote submission body. Comment is always null in
// this scope but stays on the wire for the collaborator's schema.
type FeedbackRequest struct {
	SessionIDHash string  `json:"sessionIdHash"`
	MessageID     string  `json:"messageId"`
	Vote          Vote    `json:"vote"`
	Comment       *string `json:"comment"`
}

// LeadRequest is the lead-storage submission body.
type LeadRequest struct {
	SessionIDHash string `json:"sessionIdHash"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone,omitempty"`
	Message       string `json:"message,omitempty"`
	Source        string `json:"source"`
	Consent       bool   `json:"consent,omitempty"`
}

// SupportRequest is the ticketing submission body. The lead flow reuses
// it for its best-effort ticket dispatch.
type SupportRequest struct {
	SessionIDHash string   `json:"sessionIdHash"`
	Name          string   `json:"name,omitempty"`
	Email         string   `json:"email,omitempty"`
	Phone         string   `json:"phone,omitempty"`
	Message       string   `json:"message,omitempty"`
	LastMessages  []string `json:"lastMessages,omitempty"`
	TicketTitle   string   `json:"ticketTitle,omitempty"`
	URL           string   `json:"url,omitempty"`
	Consent       bool     `json:"consent,omitempty"`
}
