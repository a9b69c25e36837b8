package userstore

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/MrEthical07/loginguard"
	"github.com/MrEthical07/loginguard/password"
)

// ErrDuplicateIdentifier is returned when an identifier is already taken.
var ErrDuplicateIdentifier = errors.New("identifier already registered")

// Memory is a concurrency-safe in-process user store.
type Memory struct {
	mu           sync.RWMutex
	byIdentifier map[string]loginguard.CredentialRecord
	byUserID     map[string]string
}

var (
	_ loginguard.UserStore           = (*Memory)(nil)
	_ loginguard.PasswordHashUpdater = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{
		byIdentifier: make(map[string]loginguard.CredentialRecord),
		byUserID:     make(map[string]string),
	}
}

func normalize(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// Add stores rec under identifier.
func (m *Memory) Add(identifier string, rec loginguard.CredentialRecord) error {
	key := normalize(identifier)
	if key == "" || rec.UserID == "" {
		return loginguard.ErrInvalidIdentifier
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byIdentifier[key]; ok {
		return ErrDuplicateIdentifier
	}
	m.byIdentifier[key] = rec
	m.byUserID[rec.UserID] = key
	return nil
}

// AddPassword hashes plaintext with h and stores an active account.
func (m *Memory) AddPassword(h *password.Hasher, identifier, userID, plaintext string) error {
	hash, err := h.Hash(plaintext)
	if err != nil {
		return err
	}
	return m.Add(identifier, loginguard.CredentialRecord{
		UserID:       userID,
		PasswordHash: hash,
		Status:       loginguard.AccountActive,
	})
}

func (m *Memory) FindByIdentifier(ctx context.Context, identifier string) (loginguard.CredentialRecord, error) {
	if err := ctx.Err(); err != nil {
		return loginguard.CredentialRecord{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.byIdentifier[normalize(identifier)]
	if !ok {
		return loginguard.CredentialRecord{}, loginguard.ErrUserNotFound
	}
	return rec, nil
}

func (m *Memory) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	return m.update(ctx, userID, func(rec *loginguard.CredentialRecord) { rec.PasswordHash = hash })
}

// SetStatus changes the account status of userID.
func (m *Memory) SetStatus(ctx context.Context, userID string, status loginguard.AccountStatus) error {
	return m.update(ctx, userID, func(rec *loginguard.CredentialRecord) { rec.Status = status })
}

func (m *Memory) update(ctx context.Context, userID string, fn func(*loginguard.CredentialRecord)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	key, ok := m.byUserID[userID]
	if !ok {
		return loginguard.ErrUserNotFound
	}
	rec := m.byIdentifier[key]
	fn(&rec)
	m.byIdentifier[key] = rec
	return nil
}

// Len returns the number of stored accounts.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byIdentifier)
}
