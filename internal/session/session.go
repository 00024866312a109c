// ABOUTME: Anonymous session identity lifecycle with a fixed time-to-live
// ABOUTME: Restores the stored id while fresh, rotates on expiry or reset

package session

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yjar/chat-core/internal/store"
)

// ErrStorageUnavailable marks a durable store that cannot be read or
// written. The manager never surfaces it to callers; it degrades to an
// ephemeral in-memory session for the rest of the process lifetime.
var ErrStorageUnavailable = errors.New("session storage unavailable")

// Config carries the storage key names and the TTL. The widget shipped
// with these as module constants; here they are injected at construction.
type Config struct {
	IDKey        string
	CreatedAtKey string
	TTL          time.Duration

	// Now allows tests to control the clock. Nil means time.Now.
	Now func() time.Time
}

// Manager owns the session id. One per process, mirroring one session per
// browser context.
type Manager struct {
	mu     sync.Mutex
	store  store.Store
	cfg    Config
	logger *slog.Logger

	// Ephemeral fallback record, authoritative once the store has failed.
	ephemeral  bool
	memID      string
	memCreated time.Time
}

// New creates a session manager on top of the given durable store.
func New(s store.Store, cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:  s,
		cfg:    cfg,
		logger: logger.With("component", "session"),
	}
}

// Ensure returns the current session id, rotating first if none is stored
// or the stored one has outlived the TTL. A session id is valid iff
// now - createdAt < TTL.
func (m *Manager) Ensure() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	if m.ephemeral {
		if m.memID != "" && now.Sub(m.memCreated) < m.cfg.TTL {
			return m.memID
		}
		return m.rotateLocked()
	}

	id, idErr := m.store.Get(m.cfg.IDKey)
	created, createdErr := m.store.Get(m.cfg.CreatedAtKey)

	if idErr == nil && createdErr == nil {
		millis, err := strconv.ParseInt(created, 10, 64)
		// A corrupt created-at counts as expired
		if err == nil && now.Sub(time.UnixMilli(millis)) < m.cfg.TTL {
			m.memID = id
			m.memCreated = time.UnixMilli(millis)
			return id
		}
	}

	if isStorageFailure(idErr) || isStorageFailure(createdErr) {
		m.degradeLocked(errors.Join(idErr, createdErr))
	}

	return m.rotateLocked()
}

// Reset unconditionally generates and persists a new session id,
// discarding the old one. Dependent state (transcript, mode, feedback
// marks) is the controller's to clear.
func (m *Manager) Reset() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rotateLocked()
}

// Ephemeral reports whether the manager has degraded to an in-memory-only
// session after a storage failure.
func (m *Manager) Ephemeral() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ephemeral
}

// rotateLocked generates a fresh id and persists {id, now} together.
// Must be called with mu held.
func (m *Manager) rotateLocked() string {
	id := uuid.New().String()
	now := m.now()

	if !m.ephemeral {
		err := m.store.Set(m.cfg.IDKey, id)
		if err == nil {
			err = m.store.Set(m.cfg.CreatedAtKey, strconv.FormatInt(now.UnixMilli(), 10))
		}
		if err != nil {
			m.degradeLocked(err)
		}
	}

	m.memID = id
	m.memCreated = now
	return id
}

// degradeLocked flips the manager to ephemeral mode. Must be called with
// mu held. The page lifetime keeps working on an in-memory id.
func (m *Manager) degradeLocked(cause error) {
	if m.ephemeral {
		return
	}
	m.ephemeral = true
	m.logger.Warn("degrading to ephemeral session",
		"error", fmt.Errorf("%w: %v", ErrStorageUnavailable, cause))
}

func (m *Manager) now() time.Time {
	if m.cfg.Now != nil {
		return m.cfg.Now()
	}
	return time.Now()
}

// isStorageFailure distinguishes real store failures from a plain miss.
func isStorageFailure(err error) bool {
	return err != nil && !errors.Is(err, store.ErrNotFound)
}
