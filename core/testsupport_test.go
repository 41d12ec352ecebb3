package core

import (
	"context"
	"crypto/rsa"
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"testing"
	"time"

	jwtkit "github.com/servxpert/authcore/jwt"
)

// The memory stores in storage/memory import this package, so tests here use
// small local fakes instead.

type fakeKV struct {
	mu   sync.Mutex
	data map[string]kvEntry
}

type kvEntry struct {
	value     []byte
	expiresAt time.Time
}

func newFakeKV() *fakeKV { return &fakeKV{data: map[string]kvEntry{}} }

func (k *fakeKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.data[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(k.data, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (k *fakeKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	e := kvEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	k.data[key] = e
	return nil
}

func (k *fakeKV) Del(_ context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.data, key)
	return nil
}

type fakeOTP struct {
	mu   sync.Mutex
	seq  int
	recs []*OTPRecord
}

func (f *fakeOTP) Put(_ context.Context, destination, codeHash string, expiresAt time.Time) (*OTPRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.recs[:0]
	for _, r := range f.recs {
		if r.Destination == destination && !r.Used {
			continue
		}
		kept = append(kept, r)
	}
	f.recs = kept
	f.seq++
	rec := &OTPRecord{
		ID:          strconv.Itoa(f.seq),
		Destination: destination,
		CodeHash:    codeHash,
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now(),
	}
	f.recs = append(f.recs, rec)
	out := *rec
	return &out, nil
}

func (f *fakeOTP) FindLatest(_ context.Context, destination string) (*OTPRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *OTPRecord
	for _, r := range f.recs {
		if r.Destination != destination {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) ||
			(r.CreatedAt.Equal(latest.CreatedAt) && r.ID > latest.ID) {
			latest = r
		}
	}
	if latest == nil {
		return nil, nil
	}
	out := *latest
	return &out, nil
}

func (f *fakeOTP) Consume(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.recs {
		if r.ID == id {
			if r.Used {
				return false, nil
			}
			r.Used = true
			return true, nil
		}
	}
	return false, fmt.Errorf("otp record %s not found", id)
}

func (f *fakeOTP) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.recs {
		if r.ID == id {
			f.recs = append(f.recs[:i], f.recs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeOTP) RecordAttempt(_ context.Context, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.recs {
		if r.ID == id {
			r.Attempts++
			return r.Attempts, nil
		}
	}
	return 0, fmt.Errorf("otp record %s not found", id)
}

func (f *fakeOTP) PurgeExpired(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	kept := f.recs[:0]
	for _, r := range f.recs {
		if r.ExpiresAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	f.recs = kept
	return n, nil
}

type fakeIdentities struct {
	mu  sync.Mutex
	seq int
	ids map[string]*Identity
}

func newFakeIdentities() *fakeIdentities { return &fakeIdentities{ids: map[string]*Identity{}} }

func (f *fakeIdentities) FindByDestination(_ context.Context, destination string, method Method) (*Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.ids {
		switch method {
		case MethodPhone:
			if id.Phone != nil && *id.Phone == destination {
				out := *id
				return &out, nil
			}
		case MethodEmail:
			if id.Email != nil && *id.Email == destination {
				out := *id
				return &out, nil
			}
		}
	}
	return nil, nil
}

func (f *fakeIdentities) FindByID(_ context.Context, id string) (*Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	found, ok := f.ids[id]
	if !ok {
		return nil, nil
	}
	out := *found
	return &out, nil
}

func (f *fakeIdentities) CreateShell(_ context.Context, destination string, method Method) (*Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := &Identity{
		ID:        "user-" + strconv.Itoa(f.seq),
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if method == MethodEmail {
		id.Email = &destination
	} else {
		id.Phone = &destination
	}
	f.ids[id.ID] = id
	out := *id
	return &out, nil
}

func (f *fakeIdentities) Provision(_ context.Context, id string, profile SignupProfile) (*Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	found, ok := f.ids[id]
	if !ok {
		return nil, fmt.Errorf("identity %s not found", id)
	}
	name := profile.Name
	role := profile.Role
	found.Name = &name
	found.Role = &role
	if profile.SecondaryEmail != "" && found.Email == nil {
		email := profile.SecondaryEmail
		found.Email = &email
	}
	if profile.SecondaryPhone != "" && found.Phone == nil {
		phone := profile.SecondaryPhone
		found.Phone = &phone
	}
	found.UpdatedAt = time.Now()
	out := *found
	return &out, nil
}

func (f *fakeIdentities) SetRole(_ context.Context, id string, role Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	found, ok := f.ids[id]
	if !ok {
		return fmt.Errorf("identity %s not found", id)
	}
	found.Role = &role
	return nil
}

func (f *fakeIdentities) TouchLastLogin(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if found, ok := f.ids[id]; ok {
		now := time.Now()
		found.LastLogin = &now
	}
	return nil
}

type fakeSessions struct {
	mu   sync.Mutex
	seq  int
	rows map[string]*fakeSessionRow
}

type fakeSessionRow struct {
	Session
	issuer       string
	currentHash  string
	previousHash string
}

func newFakeSessions() *fakeSessions { return &fakeSessions{rows: map[string]*fakeSessionRow{}} }

func (f *fakeSessions) Create(_ context.Context, userID, issuer, tokenHash string, expiresAt *time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := "sess-" + strconv.Itoa(f.seq)
	f.rows[id] = &fakeSessionRow{
		Session: Session{
			ID:         id,
			UserID:     userID,
			CreatedAt:  time.Now(),
			LastUsedAt: time.Now(),
			ExpiresAt:  expiresAt,
		},
		issuer:      issuer,
		currentHash: tokenHash,
	}
	return id, nil
}

func (f *fakeSessions) FindByCurrentHash(_ context.Context, issuer, tokenHash string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.issuer == issuer && r.currentHash == tokenHash && r.RevokedAt == nil {
			out := r.Session
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeSessions) FindByPreviousHash(_ context.Context, issuer, tokenHash string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.issuer == issuer && r.previousHash == tokenHash && r.RevokedAt == nil {
			out := r.Session
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeSessions) Rotate(_ context.Context, id, newTokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}
	r.previousHash = r.currentHash
	r.currentHash = newTokenHash
	r.LastUsedAt = time.Now()
	return nil
}

func (f *fakeSessions) Revoke(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}
	if r.RevokedAt == nil {
		now := time.Now()
		r.RevokedAt = &now
	}
	return nil
}

func (f *fakeSessions) Revoked(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	return ok && r.RevokedAt != nil
}

func (f *fakeSessions) LiveCount(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.rows {
		if r.UserID == userID && r.RevokedAt == nil {
			n++
		}
	}
	return n
}

func (f *fakeSessions) RevokeOldest(_ context.Context, userID, issuer string, keep int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var live []*fakeSessionRow
	for _, r := range f.rows {
		if r.UserID == userID && r.issuer == issuer && r.RevokedAt == nil {
			live = append(live, r)
		}
	}
	for len(live) > keep {
		oldest := live[0]
		idx := 0
		for i, r := range live {
			if r.CreatedAt.Before(oldest.CreatedAt) {
				oldest, idx = r, i
			}
		}
		now := time.Now()
		oldest.RevokedAt = &now
		live = append(live[:idx], live[idx+1:]...)
	}
	return nil
}

type captureSMS struct {
	mu       sync.Mutex
	messages []string
	fail     error
}

func (c *captureSMS) Send(_ context.Context, _, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.messages = append(c.messages, message)
	return nil
}

func (c *captureSMS) lastCode(t *testing.T) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.messages) == 0 {
		t.Fatal("no SMS captured")
	}
	m := reCode.FindString(c.messages[len(c.messages)-1])
	if m == "" {
		t.Fatalf("no code in message %q", c.messages[len(c.messages)-1])
	}
	return m
}

var reCode = regexp.MustCompile(`\d{6}`)

type testEnv struct {
	svc      *Service
	sms      *captureSMS
	otp      *fakeOTP
	ids      *fakeIdentities
	sessions *fakeSessions
	kv       *fakeKV
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	if opts.Issuer == "" {
		opts.Issuer = "http://test"
	}
	if len(opts.IssuedAudiences) == 0 {
		opts.IssuedAudiences = []string{"test"}
	}
	env := &testEnv{
		sms:      &captureSMS{},
		otp:      &fakeOTP{},
		ids:      newFakeIdentities(),
		sessions: newFakeSessions(),
		kv:       newFakeKV(),
	}
	env.svc = NewService(opts, testKeyset(t)).
		WithSMSSender(env.sms).
		WithOTPStore(env.otp).
		WithIdentityStore(env.ids).
		WithSessionStore(env.sessions).
		WithEphemeralStore(env.kv, EphemeralMemory)
	return env
}

var (
	testSignerOnce sync.Once
	testSigner     *jwtkit.RSASigner
)

func testKeyset(t *testing.T) Keyset {
	t.Helper()
	testSignerOnce.Do(func() {
		var err error
		testSigner, err = jwtkit.NewRSASigner(2048, "test-key")
		if err != nil {
			panic(err)
		}
	})
	return Keyset{
		Active:     testSigner,
		PublicKeys: map[string]*rsa.PublicKey{"test-key": testSigner.PublicKey()},
	}
}
