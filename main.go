package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"gopkg.in/natefinch/lumberjack.v2"

	"reelist/api"
	"reelist/config"
	"reelist/handlers"
	"reelist/internal/database"
	"reelist/services/catalog"
	"reelist/services/library"
	"reelist/services/queue"
	"reelist/services/scheduler"
	"reelist/services/syncsvc"
	"reelist/services/watchlist"
	"reelist/utils"
)

func main() {
	portOverride := flag.Int("port", 0, "override server port from config")
	flag.Parse()

	fmt.Println("reelist starting...")

	configPath := os.Getenv("REELIST_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("cache", "settings.json")
	}

	cfgManager := config.NewManager(configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	// Set up file logging with rotation
	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			log.Printf("Warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSize,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAge,
				Compress:   settings.Log.Compress,
			}
			log.SetOutput(io.MultiWriter(os.Stdout, fileWriter))
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.Printf("Logging to file: %s", settings.Log.File)
		}
	}

	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	// Generate the auth PIN on first start
	settings.Server.PIN = strings.TrimSpace(settings.Server.PIN)
	if settings.Server.PIN == "" {
		pin, err := utils.GeneratePIN()
		if err != nil {
			log.Fatalf("failed to generate PIN: %v", err)
		}
		settings.Server.PIN = pin
		if err := cfgManager.Save(settings); err != nil {
			log.Fatalf("failed to persist generated PIN: %v", err)
		}
		fmt.Println("Configure your frontend to use this 6-digit PIN for authentication.")
	}
	fmt.Printf("reelist PIN: %s\n", settings.Server.PIN)

	ctx := context.Background()

	db, err := database.Open(ctx, settings.Database.Path)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	catalogClient := catalog.NewClient(settings.TMDB.APIKey, settings.TMDB.Language, nil)
	libraryClient := library.NewClient(settings.Jellyfin.BaseURL, settings.Jellyfin.APIKey, settings.Jellyfin.Username, nil)

	watchlistService := watchlist.NewService(repo, catalogClient)
	queueService := queue.NewService(repo)

	resolver := syncsvc.NewResolver(libraryClient)
	orchestrator := syncsvc.NewOrchestrator(
		repo,
		libraryClient,
		resolver,
		time.Duration(settings.Sync.SnapshotTimeoutSeconds)*time.Second,
	)

	schedulerService := scheduler.NewService(
		orchestrator,
		time.Duration(settings.Sync.IntervalMinutes)*time.Minute,
		time.Duration(settings.Sync.StartupDelaySeconds)*time.Second,
	)
	if libraryClient.Configured() {
		if err := schedulerService.Start(ctx); err != nil {
			log.Fatalf("failed to start scheduler: %v", err)
		}
	} else {
		log.Println("jellyfin not configured, periodic sync disabled until settings are filled in")
	}

	// getPIN re-reads settings so a config edit takes effect without restart
	getPIN := func() string {
		s, err := cfgManager.Load()
		if err != nil {
			log.Printf("failed to load settings for auth: %v", err)
			return settings.Server.PIN
		}
		return strings.TrimSpace(s.Server.PIN)
	}

	r := mux.NewRouter()
	api.Register(
		r,
		handlers.NewWatchlistHandler(watchlistService),
		handlers.NewQueueHandler(queueService),
		handlers.NewSearchHandler(catalogClient),
		handlers.NewSyncHandler(orchestrator),
		handlers.NewSettingsHandler(cfgManager),
		getPIN,
	)

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	fmt.Printf("Server starting on %s\n", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("Shutdown signal received, cleaning up...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := schedulerService.Stop(shutdownCtx); err != nil {
		log.Printf("Scheduler shutdown error: %v", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
}
