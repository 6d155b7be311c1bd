package tonconnect

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/nacl/box"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"

	"github.com/ton-connect/walletkit-go/pkg/storage"
)

const sessionsKey = "sessions"

var ErrSessionNotFound = errors.New("session not found")

// Session is one dApp connection. SessionID is the hex public key of the
// wallet-side keypair; ClientID is the dApp's public key.
type Session struct {
	SessionID      string    `json:"sessionId"`
	SecretKey      string    `json:"secretKey"`
	ClientID       string    `json:"clientId"`
	WalletID       string    `json:"walletId"`
	WalletAddress  string    `json:"walletAddress"`
	DApp           DAppInfo  `json:"dAppInfo"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
}

// SessionManager owns the session map and writes it through to storage after
// every mutation.
type SessionManager struct {
	lggr  logger.Logger
	store storage.Storage
	now   func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionManager(lggr logger.Logger, store storage.Storage) *SessionManager {
	return &SessionManager{
		lggr:     logger.Named(lggr, "SessionManager"),
		store:    store,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Load replaces the in-memory map with what storage holds.
func (m *SessionManager) Load(ctx context.Context) error {
	var stored []*Session
	if _, err := storage.GetJSON(ctx, m.store, sessionsKey, &stored); err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = make(map[string]*Session, len(stored))
	for _, s := range stored {
		m.sessions[s.SessionID] = s
	}
	m.lggr.Debugw("Loaded sessions", "count", len(stored))
	return nil
}

func (m *SessionManager) CreateSession(ctx context.Context, clientID string, dapp DAppInfo, walletID, walletAddress string) (*Session, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session keypair: %w", err)
	}
	now := m.now()
	s := &Session{
		SessionID:      hex.EncodeToString(pub[:]),
		SecretKey:      hex.EncodeToString(priv[:]),
		ClientID:       clientID,
		WalletID:       walletID,
		WalletAddress:  walletAddress,
		DApp:           dapp,
		CreatedAt:      now,
		LastActivityAt: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.SessionID] = s
	if err := m.persistLocked(ctx); err != nil {
		delete(m.sessions, s.SessionID)
		return nil, err
	}
	m.lggr.Infow("Created session", "sessionID", s.SessionID, "dApp", dapp.Name, "walletID", walletID)
	cp := *s
	return &cp, nil
}

func (m *SessionManager) Session(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	cp := *s
	return &cp, nil
}

// SessionByClientID finds the session opened by a dApp client id.
func (m *SessionManager) SessionByClientID(clientID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.ClientID == clientID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: client %s", ErrSessionNotFound, clientID)
}

// SessionsForWallet returns the wallet's sessions, oldest first.
func (m *SessionManager) SessionsForWallet(walletID string) []Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Session
	for _, s := range m.sessions {
		if s.WalletID == walletID {
			out = append(out, *s)
		}
	}
	sortSessions(out)
	return out
}

func (m *SessionManager) Touch(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.LastActivityAt = m.now()
	return m.persistLocked(ctx)
}

func (m *SessionManager) RemoveSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(m.sessions, id)
	m.lggr.Infow("Removed session", "sessionID", id)
	return m.persistLocked(ctx)
}

// RemoveSessionsForWallet drops every session of walletID and returns how many were removed.
func (m *SessionManager) RemoveSessionsForWallet(ctx context.Context, walletID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.WalletID == walletID {
			delete(m.sessions, id)
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return n, m.persistLocked(ctx)
}

func (m *SessionManager) persistLocked(ctx context.Context) error {
	list := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, *s)
	}
	sortSessions(list)
	if err := storage.SetJSON(ctx, m.store, sessionsKey, list); err != nil {
		return fmt.Errorf("failed to persist sessions: %w", err)
	}
	return nil
}

func sortSessions(list []Session) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].SessionID < list[j].SessionID
	})
}
