package authhttp

import (
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/servxpert/authcore/core"
	"github.com/servxpert/authcore/marketplace"
	memorylimiter "github.com/servxpert/authcore/ratelimit/memory"
	redislimiter "github.com/servxpert/authcore/ratelimit/redis"
	"github.com/servxpert/authcore/realtime"
	memorystore "github.com/servxpert/authcore/storage/memory"
	pgstore "github.com/servxpert/authcore/storage/postgres"
	redisstore "github.com/servxpert/authcore/storage/redis"
)

// Service wraps core.Service with net/http mounting helpers.
type Service struct {
	svc      *core.Service
	market   *marketplace.Store
	feed     *realtime.Feed
	rd       *redis.Client
	rl       RateLimiter
	clientIP ClientIPFunc
}

// NewService constructs a core.Service and wraps it for net/http mounting.
// Returns an error if the core service fails to initialize (e.g. missing
// keys in production). Storage defaults to in-memory for dev/single-instance
// use until WithPostgres/WithRedis are called.
func NewService(cfg core.Config) (*Service, error) {
	coreSvc, err := core.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	coreSvc = coreSvc.
		WithEphemeralStore(memorystore.NewKV(), core.EphemeralMemory).
		WithOTPStore(memorystore.NewOTPStore()).
		WithIdentityStore(memorystore.NewIdentityStore()).
		WithSessionStore(memorystore.NewSessionStore())
	return &Service{
		svc:      coreSvc,
		rl:       memorylimiter.New(ToMemoryLimits(DefaultRateLimits())),
		clientIP: DefaultClientIP(),
	}, nil
}

func (s *Service) Core() *core.Service { return s.svc }

// WithPostgres swaps the durable stores onto a pgx pool.
func (s *Service) WithPostgres(pg *pgxpool.Pool) *Service {
	s.svc = s.svc.
		WithOTPStore(pgstore.NewOTPStore(pg)).
		WithIdentityStore(pgstore.NewIdentityStore(pg)).
		WithSessionStore(pgstore.NewSessionStore(pg))
	return s
}

// WithRedis swaps the ephemeral store, rate limiter, and realtime feed onto
// Redis so multiple instances share state.
func (s *Service) WithRedis(rd *redis.Client) *Service {
	s.rd = rd
	if rd != nil {
		s.svc = s.svc.WithEphemeralStore(redisstore.NewKV(rd), core.EphemeralRedis)
		s.rl = redislimiter.New(rd, ToRedisLimits(DefaultRateLimits()))
		s.feed = realtime.NewFeed(rd)
	}
	return s
}

func (s *Service) WithMarketplace(store *marketplace.Store) *Service { s.market = store; return s }
func (s *Service) WithFeed(feed *realtime.Feed) *Service             { s.feed = feed; return s }
func (s *Service) WithRateLimiter(rl RateLimiter) *Service           { s.rl = rl; return s }
func (s *Service) DisableRateLimiter() *Service                      { s.rl = nil; return s }
func (s *Service) WithClientIPFunc(fn ClientIPFunc) *Service {
	if fn == nil {
		s.clientIP = DefaultClientIP()
		return s
	}
	s.clientIP = fn
	return s
}
func (s *Service) WithSMSSender(sender core.SMSSender) *Service {
	s.svc = s.svc.WithSMSSender(sender)
	return s
}
func (s *Service) WithEmailSender(sender core.EmailSender) *Service {
	s.svc = s.svc.WithEmailSender(sender)
	return s
}

func (s *Service) allow(r *http.Request, bucket string) bool {
	if s == nil || s.rl == nil {
		return true
	}
	ipFn := s.clientIP
	if ipFn == nil {
		ipFn = DefaultClientIP()
	}
	ip := ipFn(r)
	if strings.TrimSpace(ip) == "" {
		return true
	}
	key := "auth:" + bucket + ":ip:" + ip
	ok, err := s.rl.AllowNamed(bucket, key)
	if err != nil {
		return true
	}
	return ok
}
