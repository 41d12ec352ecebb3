package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	authhttp "github.com/servxpert/authcore/adapters/http"
	"github.com/servxpert/authcore/core"
	"github.com/servxpert/authcore/email"
	jwtkit "github.com/servxpert/authcore/jwt"
	"github.com/servxpert/authcore/marketplace"
	pgmigrations "github.com/servxpert/authcore/migrations/postgres"
	"github.com/servxpert/authcore/sms"
)

type config struct {
	ListenAddr     string
	Issuer         string
	DBURL          string
	RedisURL       string
	MigrateOnStart bool

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string

	SMTPAddr string
	SMTPFrom string
	SMTPUser string
	SMTPPass string
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fatal(err)
	}

	cmd := "serve"
	if len(os.Args) > 1 && strings.TrimSpace(os.Args[1]) != "" {
		cmd = strings.TrimSpace(os.Args[1])
	}

	switch cmd {
	case "serve":
		if err := runServe(cfg); err != nil {
			fatal(err)
		}
	case "migrate":
		if err := runMigrations(context.Background(), cfg.DBURL); err != nil {
			fatal(err)
		}
	default:
		fatal(fmt.Errorf("unknown command %q (supported: serve, migrate)", cmd))
	}
}

func loadConfig() (*config, error) {
	c := &config{
		ListenAddr:     envOr("AUTHCORE_LISTEN_ADDR", ":8080"),
		Issuer:         strings.TrimRight(strings.TrimSpace(os.Getenv("AUTHCORE_ISSUER")), "/"),
		DBURL:          firstEnv("DB_URL", "DATABASE_URL"),
		RedisURL:       strings.TrimSpace(os.Getenv("REDIS_URL")),
		MigrateOnStart: envBool("AUTHCORE_MIGRATE_ON_START", true),

		TwilioAccountSID: strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID")),
		TwilioAuthToken:  strings.TrimSpace(os.Getenv("TWILIO_AUTH_TOKEN")),
		TwilioFrom:       strings.TrimSpace(os.Getenv("TWILIO_PHONE_NUMBER")),

		SMTPAddr: strings.TrimSpace(os.Getenv("SMTP_ADDR")),
		SMTPFrom: strings.TrimSpace(os.Getenv("SMTP_FROM")),
		SMTPUser: strings.TrimSpace(os.Getenv("SMTP_USER")),
		SMTPPass: os.Getenv("SMTP_PASS"),
	}
	if c.Issuer == "" {
		return nil, fmt.Errorf("AUTHCORE_ISSUER is required (e.g. http://localhost:8080)")
	}
	return c, nil
}

func runServe(cfg *config) error {
	ctx := context.Background()

	issuedAudiences := parseCSVEnv("AUTHCORE_ISSUED_AUDIENCES", []string{"servxpert"})
	expectedAudiences := parseCSVEnv("AUTHCORE_EXPECTED_AUDIENCES", issuedAudiences)

	keySource, err := jwtkit.NewAutoKeySource()
	if err != nil {
		return fmt.Errorf("load jwt keys: %w", err)
	}

	svc, err := authhttp.NewService(core.Config{
		Issuer:            cfg.Issuer,
		IssuedAudiences:   issuedAudiences,
		ExpectedAudiences: expectedAudiences,
		Keys:              keySource,
	})
	if err != nil {
		return err
	}

	// Without DB_URL everything runs on memory stores; codes land in the
	// process log via the dev fallback unless Twilio/SMTP are configured.
	if cfg.DBURL != "" {
		if cfg.MigrateOnStart {
			if err := runMigrations(ctx, cfg.DBURL); err != nil {
				return err
			}
		}
		pg, err := pgxpool.New(ctx, cfg.DBURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()
		svc.WithPostgres(pg)

		sqldb, err := sql.Open("pgx", cfg.DBURL)
		if err != nil {
			return fmt.Errorf("open sql db: %w", err)
		}
		defer sqldb.Close()
		bundb := bun.NewDB(sqldb, pgdialect.New())
		svc.WithMarketplace(marketplace.NewStore(bundb))
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		svc.WithRedis(redis.NewClient(opts))
	}

	if cfg.TwilioAccountSID != "" {
		svc.WithSMSSender(sms.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFrom))
	} else if !core.IsDevEnvironment() {
		log.Printf("warning: TWILIO_ACCOUNT_SID not set; phone code delivery will fail")
	}
	switch {
	case cfg.SMTPAddr != "":
		svc.WithEmailSender(email.NewSMTPSender(cfg.SMTPAddr, cfg.SMTPFrom, cfg.SMTPUser, cfg.SMTPPass))
	case core.IsDevEnvironment():
		svc.WithEmailSender(email.DevLogSender{})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	mux.Handle("/.well-known/jwks.json", svc.JWKSHandler())
	mux.Handle("/", svc.APIHandler())

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Printf("authcore listening on %s (issuer %s)", cfg.ListenAddr, cfg.Issuer)
	return server.ListenAndServe()
}

func runMigrations(ctx context.Context, dbURL string) error {
	if dbURL == "" {
		return fmt.Errorf("DB_URL (or DATABASE_URL) is required to migrate")
	}
	sqlDB, err := sql.Open("pgx", dbURL)
	if err != nil {
		return fmt.Errorf("open sql db: %w", err)
	}
	defer sqlDB.Close()

	// gen_random_uuid needs pgcrypto on older Postgres.
	if _, err := sqlDB.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS pgcrypto`); err != nil {
		return fmt.Errorf("enable pgcrypto: %w", err)
	}

	files, err := fs.Glob(pgmigrations.FS, "*.up.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no postgres migrations found")
	}
	sort.Strings(files)

	for _, name := range files {
		sqlBytes, err := pgmigrations.FS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if strings.TrimSpace(string(sqlBytes)) == "" {
			continue
		}
		if _, err := sqlDB.ExecContext(ctx, string(sqlBytes)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseCSVEnv(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func envBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return b
}

func fatal(err error) {
	if err == nil {
		os.Exit(0)
	}
	if errors.Is(err, http.ErrServerClosed) {
		os.Exit(0)
	}
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}
