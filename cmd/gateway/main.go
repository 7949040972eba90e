package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	api "github.com/mind-engage/mindengage-testpad/internal/api/http"
	"github.com/mind-engage/mindengage-testpad/internal/auth"
	"github.com/mind-engage/mindengage-testpad/internal/bank"
	"github.com/mind-engage/mindengage-testpad/internal/config"
	"github.com/mind-engage/mindengage-testpad/internal/db"
	"github.com/mind-engage/mindengage-testpad/internal/exam"
	"github.com/mind-engage/mindengage-testpad/internal/storage"
	syncx "github.com/mind-engage/mindengage-testpad/internal/sync"
)

func main() {
	// gateway hash-secret <code> prints a bcrypt hash for SAVE_TEST_CODE_HASH.
	if len(os.Args) == 3 && os.Args[1] == "hash-secret" {
		h, err := auth.HashSecret(os.Args[2])
		if err != nil {
			log.Fatalf("hash: %v", err)
		}
		fmt.Println(h)
		return
	}

	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var checks []func(context.Context) error

	// --- Stores ---
	var (
		tests     exam.TestStore
		sessions  exam.SessionStore
		templates exam.TemplateStore
		events    = syncx.Nop()
		eventLog  *syncx.EventRepo
	)
	switch cfg.StoreDriver {
	case "sql":
		dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
		if err != nil {
			log.Fatalf("db open failed: %v", err)
		}
		defer dbh.Close()
		st := exam.NewSQLStore(dbh, cfg.DBDriver)
		tests, sessions, templates = st, st, st
		checks = append(checks, dbh.PingContext)
		if cfg.EventsDriver == "sql" {
			eventLog = syncx.NewEventRepo(dbh)
			events = eventLog
		}
	case "memory", "":
		st := exam.NewInMemoryStore()
		tests, sessions, templates = st, st, st
	default:
		log.Fatalf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	if cfg.SessionDriver == "redis" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis ping failed: %v", err)
		}
		defer rdb.Close()
		sessions = exam.NewRedisSessionStore(rdb, cfg.SessionTTL)
		checks = append(checks, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	switch cfg.EventsDriver {
	case "amqp":
		sink, err := syncx.NewAMQPSink(cfg.AMQPURL, cfg.EventsQueue)
		if err != nil {
			log.Fatalf("amqp: %v", err)
		}
		defer sink.Close()
		events = sink
	case "sql":
		if cfg.StoreDriver != "sql" {
			log.Fatalf("EVENTS_DRIVER=sql needs STORE_DRIVER=sql")
		}
	}

	// --- Blobs ---
	var bs storage.BlobStore
	switch cfg.BlobDriver {
	case "minio":
		ms, err := storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			log.Fatalf("blob store: %v", err)
		}
		bs = ms
	default:
		fs, err := storage.NewFSStore(cfg.BlobBasePath)
		if err != nil {
			log.Fatalf("blob store: %v", err)
		}
		bs = fs
	}

	// --- Service ---
	opts := []exam.Option{exam.WithEvents(events)}
	var admin *auth.SharedSecret
	if cfg.SaveTestCode != "" || cfg.SaveTestCodeHash != "" {
		admin = auth.NewSharedSecret(cfg.SaveTestCode, cfg.SaveTestCodeHash)
		opts = append(opts, exam.WithTemplateSecret(admin))
	} else {
		log.Printf("SAVE_TEST_CODE not set; saving tests is disabled")
	}
	svc := exam.NewService(tests, sessions, templates, opts...)

	if cfg.DefaultQuestionsFile != "" {
		in, err := bank.LoadFile(cfg.DefaultQuestionsFile)
		if err != nil {
			log.Fatalf("question bank: %v", err)
		}
		created, err := svc.SeedDefault(ctx, in)
		if err != nil {
			log.Fatalf("seed default test: %v", err)
		}
		log.Printf("loaded %d default questions from %s", created.QuestionCount, cfg.DefaultQuestionsFile)
	}

	// --- Router ---
	deps := api.Deps{
		Service:     svc,
		Blobs:       bs,
		PublicURL:   cfg.PublicURL,
		CORSOrigins: cfg.CORSOrigins(),
		Ready: func(ctx context.Context) error {
			for _, check := range checks {
				if err := check(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	}
	if eventLog != nil && admin != nil {
		deps.Events, deps.Admin = eventLog, admin
	}
	r := api.NewRouter(deps)

	s := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("listening on %s (mode=%s, store=%s, blobs=%s, events=%s)",
			cfg.HTTPAddr, cfg.Mode, cfg.StoreDriver, cfg.BlobDriver, cfg.EventsDriver)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := s.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("server stopped")
}
