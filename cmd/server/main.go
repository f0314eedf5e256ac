package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/agenthands/ctreview/internal/auth"
	"github.com/agenthands/ctreview/internal/catalog"
	"github.com/agenthands/ctreview/internal/config"
	"github.com/agenthands/ctreview/internal/core"
	"github.com/agenthands/ctreview/internal/core/model"
	"github.com/agenthands/ctreview/internal/imagestore"
	"github.com/agenthands/ctreview/internal/server"
	"github.com/agenthands/ctreview/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config.toml (default $CONFIG_PATH or config/config.toml)")
	port := flag.String("port", "", "listen port, overrides config and $PORT")
	hashPassword := flag.String("hash-password", "", "print a bcrypt hash for a reviewer password and exit")
	flag.Parse()

	if *hashPassword != "" {
		h, err := auth.HashPassword(*hashPassword)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(h)
		return
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		log.Fatalf("Failed to open result store: %v", err)
	}
	defer results.Close()

	tasks := make(map[model.Task]core.TaskSource)
	for task, entry := range cfg.TaskSpecs() {
		cat := catalog.NewCSVCatalog(entry.Spec.CatalogPath)
		if entry.IDColumn != "" {
			cat.IDColumn = entry.IDColumn
		}
		if entry.ImageColumn != "" {
			cat.ImageColumn = entry.ImageColumn
		}
		tasks[task] = core.TaskSource{Spec: entry.Spec, Catalog: cat}
	}

	dir := auth.NewDirectory(results, logger)
	seeded, err := dir.Seed(ctx, cfg.Reviewers)
	if err != nil {
		log.Fatalf("Failed to seed reviewers: %v", err)
	}
	accounts, err := dir.List(ctx)
	if err != nil {
		log.Fatalf("Failed to list reviewers: %v", err)
	}
	if len(accounts) == 0 {
		log.Println("Warning: no reviewer accounts, nobody can log in")
	}
	logger.Info("reviewers loaded", "seeded", seeded, "total", len(accounts))

	images := imagestore.NewLoader(cfg.Images.Root, cfg.Images.Size)
	images.MaxDimension = cfg.Images.MaxDimension

	srv := server.NewServer(
		core.NewAnnotator(results, tasks, logger),
		dir,
		images,
		logger,
	)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	log.Printf("Starting server on port %s (store: %s)", cfg.Server.Port, cfg.Store.Backend)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	log.Println("Server stopped")
}

// loadConfig reads the config file, falling back to defaults when the
// default path does not exist, then applies environment overrides.
func loadConfig(path string) (*config.Config, error) {
	explicit := path != ""
	if !explicit {
		path = os.Getenv("CONFIG_PATH")
		explicit = path != ""
	}
	if !explicit {
		path = "config/config.toml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		log.Printf("Warning: %s not found, using default configuration", path)
		cfg = config.Default()
	}

	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
