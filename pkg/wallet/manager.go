package wallet

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/xssnick/tonutils-go/address"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"

	"github.com/ton-connect/walletkit-go/pkg/storage"
)

const walletsKey = "wallets"

var ErrWalletNotFound = errors.New("wallet not found")

// Descriptor is the persisted, key-free description of a managed wallet.
type Descriptor struct {
	ID      string  `json:"id"`
	Address string  `json:"address"`
	Network Network `json:"network"`
	Version string  `json:"version"`
}

// ID builds the wallet id "<network>:<raw address>".
func ID(network Network, addr *address.Address) string {
	return string(network) + ":" + addr.StringRaw()
}

// Manager caches wallets by id and writes their descriptors through to storage.
type Manager struct {
	lggr  logger.Logger
	store storage.Storage

	mu      sync.RWMutex
	wallets map[string]Wallet
}

func NewManager(lggr logger.Logger, store storage.Storage) *Manager {
	return &Manager{
		lggr:    logger.Named(lggr, "WalletManager"),
		store:   store,
		wallets: make(map[string]Wallet),
	}
}

func (m *Manager) AddWallet(ctx context.Context, w Wallet) (string, error) {
	if !w.Network().Valid() {
		return "", fmt.Errorf("unknown network %q", w.Network())
	}
	id := ID(w.Network(), w.Address())

	m.mu.Lock()
	defer m.mu.Unlock()
	prev, existed := m.wallets[id]
	m.wallets[id] = w
	if err := m.persistLocked(ctx); err != nil {
		if existed {
			m.wallets[id] = prev
		} else {
			delete(m.wallets, id)
		}
		return "", err
	}
	m.lggr.Infow("Added wallet", "walletID", id, "network", w.Network().Name(), "version", w.Version())
	return id, nil
}

func (m *Manager) RemoveWallet(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.wallets[id]; !ok {
		return fmt.Errorf("%w: %s", ErrWalletNotFound, id)
	}
	delete(m.wallets, id)
	m.lggr.Infow("Removed wallet", "walletID", id)
	return m.persistLocked(ctx)
}

func (m *Manager) Wallet(id string) (Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.wallets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWalletNotFound, id)
	}
	return w, nil
}

// WalletByAddress accepts user-friendly or raw form. When the same address is
// managed on both networks the lowest id wins.
func (m *Manager) WalletByAddress(addr string) (Wallet, string, error) {
	parsed, err := parseAnyAddress(addr)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrWalletNotFound, err)
	}
	raw := parsed.StringRaw()

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.sortedIDsLocked() {
		if m.wallets[id].Address().StringRaw() == raw {
			return m.wallets[id], id, nil
		}
	}
	return nil, "", fmt.Errorf("%w: %s", ErrWalletNotFound, addr)
}

// Lookup resolves by id first, then by address.
func (m *Manager) Lookup(id, addr string) (Wallet, string, error) {
	if id != "" {
		if w, err := m.Wallet(id); err == nil {
			return w, id, nil
		}
	}
	if addr != "" {
		return m.WalletByAddress(addr)
	}
	return nil, "", fmt.Errorf("%w: id=%q address=%q", ErrWalletNotFound, id, addr)
}

func (m *Manager) Wallets() []Wallet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Wallet, 0, len(m.wallets))
	for _, id := range m.sortedIDsLocked() {
		out = append(out, m.wallets[id])
	}
	return out
}

// StoredDescriptors returns what storage holds, for restoring wallets on start.
func (m *Manager) StoredDescriptors(ctx context.Context) ([]Descriptor, error) {
	var out []Descriptor
	if _, err := storage.GetJSON(ctx, m.store, walletsKey, &out); err != nil {
		return nil, fmt.Errorf("failed to load wallets: %w", err)
	}
	return out, nil
}

func (m *Manager) sortedIDsLocked() []string {
	ids := make([]string, 0, len(m.wallets))
	for id := range m.wallets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *Manager) persistLocked(ctx context.Context) error {
	list := make([]Descriptor, 0, len(m.wallets))
	for _, id := range m.sortedIDsLocked() {
		w := m.wallets[id]
		list = append(list, Descriptor{ID: id, Address: w.Address().String(), Network: w.Network(), Version: w.Version()})
	}
	if err := storage.SetJSON(ctx, m.store, walletsKey, list); err != nil {
		return fmt.Errorf("failed to persist wallets: %w", err)
	}
	return nil
}

func parseAnyAddress(s string) (*address.Address, error) {
	if a, err := address.ParseAddr(s); err == nil {
		return a, nil
	}
	return address.ParseRawAddr(s)
}
