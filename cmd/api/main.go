package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"centra.io/internal/auth"
	"centra.io/internal/bootstrap"
	"centra.io/internal/httpapi"
	"centra.io/internal/migrate"
	"centra.io/internal/obs"
	"centra.io/internal/store/memory"
	"centra.io/internal/store/pg"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	// Инициализация observability (регистрация метрик, JSON-логгер и т.п.)
	obs.Init()
	obs.InitBuildInfo(version, commit)

	secret := os.Getenv("CENTRA_AUTH_SECRET")
	if secret == "" {
		log.Fatal("CENTRA_AUTH_SECRET is required")
	}

	// Хранилище: Postgres при заданном DSN, иначе in-memory для dev
	var store auth.Store
	rp := httpapi.ReadyProbe{}
	if dsn := os.Getenv("CENTRA_PG_DSN"); dsn != "" {
		pgStore, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer pgStore.Close()

		if os.Getenv("CENTRA_AUTO_MIGRATE") == "1" {
			mgr := migrate.NewManager(pgStore.DB(), os.DirFS("ops/migrations/sql"), nil)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := mgr.Up(ctx); err != nil {
				cancel()
				log.Fatalf("apply migrations: %v", err)
			}
			cancel()
		}

		store = pgStore
		rp.DB = pgStore.DB()
	} else {
		log.Println("CENTRA_PG_DSN is empty, using in-memory store")
		store = memory.New()
	}

	opts := []auth.CodecOption{auth.WithDirectory(store)}
	if ttl := durationEnv("CENTRA_ACCESS_TTL"); ttl > 0 {
		opts = append(opts, auth.WithAccessTTL(ttl))
	}
	if ttl := durationEnv("CENTRA_REFRESH_TTL"); ttl > 0 {
		opts = append(opts, auth.WithRefreshTTL(ttl))
	}
	codec, err := auth.NewTokenCodec(secret, opts...)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}

	// Provisioning: сначала каталог прав из таблицы маршрутов, затем
	// первичная организация с администратором (идемпотентно).
	provisioner, err := bootstrap.New(store,
		envDefault("CENTRA_BOOTSTRAP_USERNAME", "admin"),
		os.Getenv("CENTRA_BOOTSTRAP_PASSWORD"))
	if err != nil {
		log.Fatalf("bootstrap config: %v", err)
	}
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := provisioner.ReconcileAccessRights(bootCtx, httpapi.DeclaredAccessRights()); err != nil {
		bootCancel()
		log.Fatalf("reconcile access rights: %v", err)
	}
	if err := provisioner.Run(bootCtx); err != nil {
		bootCancel()
		log.Fatalf("bootstrap: %v", err)
	}
	bootCancel()

	api := httpapi.New(rp, version, store, codec)

	srv := &http.Server{
		Addr:              envDefault("CENTRA_ADDR", ":8080"),
		Handler:           api.Handler(), // уже обёрнут метриками в httpapi
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting centra-api %s on %s", version, srv.Addr)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("%s: %v", key, err)
	}
	return d
}
