package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"vidmark.org/internal/auth"
	"vidmark.org/internal/config"
	"vidmark.org/internal/httpapi"
	"vidmark.org/internal/media"
	"vidmark.org/internal/obs"
	"vidmark.org/internal/stream"
	"vidmark.org/internal/video"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	// Инициализация observability (регистрация метрик, JSON-логгер и т.п.)
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Подключение к БД (если задан DSN); без него работают in-memory стора.
	var db *sql.DB
	var userStore auth.UserStore
	var videoStore video.Store
	if cfg.PGDSN != "" {
		db, err = sql.Open("pgx", cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
		userStore = auth.NewPGStore(db)
		videoStore = video.NewPGStore(db)
	} else {
		log.Println("VIDMARK_PG_DSN is empty, using in-memory stores")
		userStore = auth.NewMemoryStore()
		videoStore = video.NewMemoryStore()
	}

	disk, err := media.NewDisk(cfg.UploadDir)
	if err != nil {
		log.Fatalf("media: %v", err)
	}

	tokens := auth.NewTokens(
		[]byte(cfg.AccessSecret), []byte(cfg.RefreshSecret),
		auth.WithIssuer(cfg.Issuer),
		auth.WithAccessTTL(cfg.AccessTTL),
		auth.WithRefreshTTL(cfg.RefreshTTL),
	)
	authSvc := auth.NewService(userStore, tokens)
	videoSvc := video.NewService(videoStore, disk)

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, authSvc, videoSvc, stream.New(), httpapi.Options{
		Version:       version,
		FrontOrigin:   cfg.FrontOrigin,
		SecureCookies: cfg.Production(),
		UploadDir:     disk.Dir(),
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(), // уже обёрнут метриками в httpapi
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second, // SSE-клиентам нужен запас
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting vidmark-api %s on %s", version, srv.Addr)

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
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
