// ABOUTME: FeedbackRecorder submits votes on assistant messages
// ABOUTME: At most one submission per (session, message); marks survive reloads via the store

package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/yjar/chat-core/internal/api"
	"github.com/yjar/chat-core/internal/identity"
	"github.com/yjar/chat-core/internal/store"
)

var (
	// ErrNoSession is returned when no session has been established yet.
	ErrNoSession = errors.New("no active session")
	// ErrNoSuchMessage is returned for an index outside the transcript.
	ErrNoSuchMessage = errors.New("no message at index")
	// ErrNotAssistant is returned when the target is not an assistant message.
	ErrNotAssistant = errors.New("votes are only valid on assistant messages")
	// ErrInvalidVote is returned for anything but up or down.
	ErrInvalidVote = errors.New("vote must be up or down")
)

// Transcript is the slice of the controller the recorder reads from.
type Transcript interface {
	SessionID() string
	MessageAt(index int) (api.Message, bool)
}

// Poster is the slice of the api client the recorder submits through.
type Poster interface {
	Feedback(ctx context.Context, req api.FeedbackRequest) error
}

// Recorder enforces at-most-one vote per assistant message. Sent marks
// live in memory and, when a durable store is attached, are written
// through so a reload cannot re-vote. The pattern is check, submit, mark:
// a failed submission leaves the message votable.
type Recorder struct {
	mu         sync.Mutex
	poster     Poster
	transcript Transcript
	marks      map[string]bool
	durable    store.Store
	logger     *slog.Logger
}

// New creates a recorder. durable may be nil; marks are then in-memory
// only and a reload permits re-voting.
func New(poster Poster, transcript Transcript, durable store.Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		poster:     poster,
		transcript: transcript,
		marks:      make(map[string]bool),
		durable:    durable,
		logger:     logger.With("component", "feedback"),
	}
}

// Vote submits a vote for the assistant message at index. A repeated vote
// on an already-voted message is a no-op, not an error. A failed network
// call does not mark the message, leaving the vote retryable.
func (r *Recorder) Vote(ctx context.Context, index int, vote api.Vote) error {
	if vote != api.VoteUp && vote != api.VoteDown {
		return ErrInvalidVote
	}

	sessionID := r.transcript.SessionID()
	if sessionID == "" {
		return ErrNoSession
	}

	msg, ok := r.transcript.MessageAt(index)
	if !ok {
		return ErrNoSuchMessage
	}
	if msg.Role != api.RoleAssistant {
		return ErrNotAssistant
	}

	key := markKey(sessionID, index)

	r.mu.Lock()
	sent := r.sentLocked(key)
	r.mu.Unlock()
	if sent {
		return nil
	}

	err := r.poster.Feedback(ctx, api.FeedbackRequest{
		SessionIDHash: identity.Hash(sessionID),
		MessageID:     strconv.Itoa(index),
		Vote:          vote,
	})
	if err != nil {
		return err
	}

	// Mark only after success
	r.mu.Lock()
	defer r.mu.Unlock()
	r.marks[key] = true
	if r.durable != nil {
		if err := r.durable.Set(key, string(vote)); err != nil {
			r.logger.Warn("persisting vote mark failed, mark is in-memory only",
				"key", key, "error", err)
		}
	}
	return nil
}

// Sent reports whether the message at index has already been voted on in
// the current session. Frontends use it to disable vote actions.
func (r *Recorder) Sent(index int) bool {
	sessionID := r.transcript.SessionID()
	if sessionID == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sentLocked(markKey(sessionID, index))
}

// sentLocked consults the in-memory marks first, then the durable store.
// Must be called with mu held.
func (r *Recorder) sentLocked(key string) bool {
	if r.marks[key] {
		return true
	}
	if r.durable == nil {
		return false
	}
	_, err := r.durable.Get(key)
	if err == nil {
		// Cache the durable mark for this page lifetime
		r.marks[key] = true
		return true
	}
	if !errors.Is(err, store.ErrNotFound) {
		r.logger.Warn("reading vote mark failed", "key", key, "error", err)
	}
	return false
}

// markKey scopes a mark to one (session, messageIndex) pair. A session
// reset rotates the id, so stale marks simply stop matching.
func markKey(sessionID string, index int) string {
	return fmt.Sprintf("vote:%s:%d", sessionID, index)
}
