package memorystore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/servxpert/authcore/core"
)

// OTPStore keeps OTP records in memory, for tests and single-process dev.
// Put holds the store lock across supersede+insert, which gives the same
// atomicity the Postgres implementation gets from a transaction.
type OTPStore struct {
	mu      sync.Mutex
	records map[string]*core.OTPRecord // by id
}

func NewOTPStore() *OTPStore {
	return &OTPStore{records: make(map[string]*core.OTPRecord)}
}

func (s *OTPStore) Put(ctx context.Context, destination, codeHash string, expiresAt time.Time) (*core.OTPRecord, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rec := range s.records {
		if rec.Destination == destination && !rec.Used {
			delete(s.records, id)
		}
	}
	rec := &core.OTPRecord{
		ID:          uuid.NewString(),
		Destination: destination,
		CodeHash:    codeHash,
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now(),
	}
	s.records[rec.ID] = rec
	return cloneRecord(rec), nil
}

func (s *OTPStore) FindLatest(ctx context.Context, destination string) (*core.OTPRecord, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var matches []*core.OTPRecord
	for _, rec := range s.records {
		if rec.Destination == destination {
			matches = append(matches, rec)
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return cloneRecord(matches[0]), nil
}

func (s *OTPStore) Consume(ctx context.Context, id string) (bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok || rec.Used {
		return false, nil
	}
	rec.Used = true
	return true, nil
}

func (s *OTPStore) Delete(ctx context.Context, id string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

func (s *OTPStore) RecordAttempt(ctx context.Context, id string) (int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return 0, nil
	}
	rec.Attempts++
	return rec.Attempts, nil
}

func (s *OTPStore) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, rec := range s.records {
		if rec.ExpiresAt.Before(cutoff) {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

// ExpireNow backdates a record's expiry. Test helper.
func (s *OTPStore) ExpireNow(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[id]; ok {
		rec.ExpiresAt = time.Now().Add(-time.Second)
	}
}

// UnusedCount reports live records for a destination. Test helper.
func (s *OTPStore) UnusedCount(destination string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, rec := range s.records {
		if rec.Destination == destination && !rec.Used {
			n++
		}
	}
	return n
}

func cloneRecord(rec *core.OTPRecord) *core.OTPRecord {
	c := *rec
	return &c
}
