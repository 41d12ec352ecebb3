package memorystore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/servxpert/authcore/core"
)

type sessionRow struct {
	id           string
	userID       string
	issuer       string
	currentHash  string
	previousHash string
	expiresAt    *time.Time
	createdAt    time.Time
	lastUsedAt   time.Time
	revokedAt    *time.Time
}

// SessionStore keeps refresh sessions in memory.
type SessionStore struct {
	mu   sync.Mutex
	rows map[string]*sessionRow
}

func NewSessionStore() *SessionStore {
	return &SessionStore{rows: make(map[string]*sessionRow)}
}

func (s *SessionStore) Create(ctx context.Context, userID, issuer, tokenHash string, expiresAt *time.Time) (string, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	row := &sessionRow{
		id:          uuid.NewString(),
		userID:      userID,
		issuer:      issuer,
		currentHash: tokenHash,
		createdAt:   now,
		lastUsedAt:  now,
	}
	if expiresAt != nil {
		exp := *expiresAt
		row.expiresAt = &exp
	}
	s.rows[row.id] = row
	return row.id, nil
}

func (s *SessionStore) FindByCurrentHash(ctx context.Context, issuer, tokenHash string) (*core.Session, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.issuer == issuer && row.currentHash == tokenHash && row.revokedAt == nil {
			return row.view(), nil
		}
	}
	return nil, nil
}

func (s *SessionStore) FindByPreviousHash(ctx context.Context, issuer, tokenHash string) (*core.Session, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.issuer == issuer && row.previousHash != "" && row.previousHash == tokenHash {
			return row.view(), nil
		}
	}
	return nil, nil
}

func (s *SessionStore) Rotate(ctx context.Context, id, newTokenHash string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil
	}
	row.previousHash = row.currentHash
	row.currentHash = newTokenHash
	row.lastUsedAt = time.Now()
	return nil
}

func (s *SessionStore) Revoke(ctx context.Context, id string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.rows[id]; ok && row.revokedAt == nil {
		now := time.Now()
		row.revokedAt = &now
	}
	return nil
}

func (s *SessionStore) RevokeOldest(ctx context.Context, userID, issuer string, keep int) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var live []*sessionRow
	for _, row := range s.rows {
		if row.userID != userID || row.issuer != issuer || row.revokedAt != nil {
			continue
		}
		if row.expiresAt != nil && now.After(*row.expiresAt) {
			continue
		}
		live = append(live, row)
	}
	if keep < 0 {
		keep = 0
	}
	if len(live) <= keep {
		return nil
	}
	sort.Slice(live, func(i, j int) bool { return live[i].createdAt.Before(live[j].createdAt) })
	for _, row := range live[:len(live)-keep] {
		row.revokedAt = &now
	}
	return nil
}

func (r *sessionRow) view() *core.Session {
	sess := &core.Session{
		ID:         r.id,
		UserID:     r.userID,
		CreatedAt:  r.createdAt,
		LastUsedAt: r.lastUsedAt,
		RevokedAt:  r.revokedAt,
	}
	if r.expiresAt != nil {
		exp := *r.expiresAt
		sess.ExpiresAt = &exp
	}
	return sess
}
