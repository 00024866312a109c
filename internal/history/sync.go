// ABOUTME: HistorySynchronizer reconstructs the prior transcript for a session
// ABOUTME: Tags each load with its session id and discards superseded responses

package history

import (
	"context"
	"errors"
	"log/slog"

	"github.com/yjar/chat-core/internal/api"
)

// ErrStaleResponse marks a history response that arrived after its
// session was replaced. It is silently discarded by callers, never
// applied, never shown to the user.
var ErrStaleResponse = errors.New("history response for superseded session")

// Fetcher is the slice of the api client the synchronizer needs.
type Fetcher interface {
	History(ctx context.Context, sessionID string) ([]api.Message, error)
}

// Synchronizer loads the stored transcript once per session establishment.
type Synchronizer struct {
	fetcher Fetcher
	logger  *slog.Logger
}

// New creates a history synchronizer.
func New(fetcher Fetcher, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{
		fetcher: fetcher,
		logger:  logger.With("component", "history"),
	}
}

// Load fetches the transcript for sessionID. current reports the active
// session id at apply time; when it no longer matches the id the request
// was issued for, the result is dropped with ErrStaleResponse regardless
// of outcome. A transport or server failure yields an empty transcript
// and a nil error: the widget starts clean, the failure is only logged.
func (s *Synchronizer) Load(ctx context.Context, sessionID string, current func() string) ([]api.Message, error) {
	messages, err := s.fetcher.History(ctx, sessionID)

	if current != nil && current() != sessionID {
		return nil, ErrStaleResponse
	}

	if err != nil {
		s.logger.Warn("history load failed, starting with empty transcript",
			"session_id", sessionID,
			"error", err)
		return nil, nil
	}

	return messages, nil
}
