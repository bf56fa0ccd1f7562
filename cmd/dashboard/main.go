package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"gopkg.in/yaml.v3"

	"github.com/coursecut/dashboard/internal/api"
	"github.com/coursecut/dashboard/internal/cleanup"
	"github.com/coursecut/dashboard/internal/export"
	"github.com/coursecut/dashboard/internal/handlers"
	"github.com/coursecut/dashboard/internal/poller"
	"github.com/coursecut/dashboard/internal/registry"
	"github.com/coursecut/dashboard/internal/storage"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	Backend struct {
		URL       string `yaml:"url"`
		ParserURL string `yaml:"parser_url"`
	} `yaml:"backend"`

	Polling struct {
		ListIntervalMS   int `yaml:"list_interval_ms"`
		DetailIntervalMS int `yaml:"detail_interval_ms"`
	} `yaml:"polling"`

	Storage struct {
		OutputDir string `yaml:"output_dir"`
		Database  string `yaml:"database"`
	} `yaml:"storage"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
	} `yaml:"cleanup"`

	GoogleDrive struct {
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
		FolderName      string `yaml:"folder_name"`
	} `yaml:"google_drive"`

	Limits struct {
		MaxFileSizeMB int `yaml:"max_file_size_mb"`
	} `yaml:"limits"`
}

func main() {
	// Load configuration
	config, err := loadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ensure directories exist
	if err := cleanup.EnsureDirsExist([]string{config.Storage.OutputDir, filepath.Dir(config.Storage.Database)}); err != nil {
		log.Fatalf("Failed to create storage directories: %v", err)
	}

	// Custom logger setup
	logBuffer := &LogBuffer{
		lines: make([]string, 0, 1000),
	}
	multiWriter := io.MultiWriter(os.Stdout, logBuffer)
	log.SetOutput(multiWriter)

	// Initialize components
	log.Println("Initializing components...")

	// Backend API clients
	client := api.NewClient(config.Backend.URL)
	parserURL := config.Backend.ParserURL
	if parserURL == "" {
		parserURL = config.Backend.URL
	}
	parserClient := api.NewClient(parserURL)

	// Google Drive client (optional - may fail if credentials not set up)
	var driveClient *storage.DriveClient
	if _, err := os.Stat(config.GoogleDrive.CredentialsFile); err == nil {
		driveClient, err = storage.NewDriveClient(
			config.GoogleDrive.CredentialsFile,
			config.GoogleDrive.TokenFile,
			config.GoogleDrive.FolderName,
		)
		if err != nil {
			log.Printf("WARNING: Google Drive not available: %v", err)
			log.Println("Exports will only be saved locally")
			driveClient = nil
		} else {
			log.Println("Google Drive integration enabled")
		}
	} else {
		log.Println("Google Drive credentials not found - saving locally only")
	}

	// Database
	db, err := storage.NewTrackedJobDB(config.Storage.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Local artifact storage
	localStore := storage.NewLocalStore(config.Storage.OutputDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Job list registry
	listInterval := registry.DefaultInterval
	if config.Polling.ListIntervalMS > 0 {
		listInterval = time.Duration(config.Polling.ListIntervalMS) * time.Millisecond
	}
	reg := registry.New(client, db, listInterval)
	reg.Start(ctx)
	defer reg.Stop()

	// Per-job view hub
	detailInterval := poller.DefaultInterval
	if config.Polling.DetailIntervalMS > 0 {
		detailInterval = time.Duration(config.Polling.DetailIntervalMS) * time.Millisecond
	}
	hub := handlers.NewHub(ctx, client, detailInterval)
	defer hub.Close()

	// Export pipeline
	var uploader export.Uploader
	if driveClient != nil {
		uploader = driveClient
	}
	orchestrator := export.NewOrchestrator(client, localStore, uploader, db)

	// Cleanup scheduler
	cleanupScheduler := cleanup.NewScheduler(
		[]string{config.Storage.OutputDir},
		config.Cleanup.IntervalMinutes,
		config.Cleanup.MaxAgeHours,
	)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: config.Limits.MaxFileSizeMB * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	// Initialize handlers
	jobsHandler := handlers.NewJobsHandler(reg, hub, config.Limits.MaxFileSizeMB)
	playerHandler := handlers.NewPlayerHandler(hub)
	exportHandler := handlers.NewExportHandler(hub, orchestrator, db)
	recordingsHandler := handlers.NewRecordingsHandler(client)
	glossaryHandler := handlers.NewGlossaryHandler(client)
	runsHandler := handlers.NewRunsHandler(parserClient)

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	dash := app.Group("/api/dashboard")

	dash.Get("/jobs", jobsHandler.List)
	dash.Post("/jobs/refresh", jobsHandler.Refresh)
	dash.Post("/jobs/upload", jobsHandler.Upload)
	dash.Post("/jobs/start", jobsHandler.Start)
	dash.Post("/jobs/delete", jobsHandler.DeleteMany)
	dash.Get("/jobs/:id", jobsHandler.Detail)
	dash.Delete("/jobs/:id", jobsHandler.Delete)
	dash.Delete("/jobs/:id/view", jobsHandler.Release)

	dash.Post("/jobs/:id/export", exportHandler.Export)
	dash.Get("/jobs/:id/artifacts", exportHandler.Artifacts)
	dash.Get("/jobs/:id/artifacts/:filename/download", exportHandler.Download)

	dash.Get("/recordings", recordingsHandler.List)
	dash.Delete("/recordings/:id", recordingsHandler.Delete)

	dash.Get("/glossary/:lang/info", glossaryHandler.Info)
	dash.Get("/glossary/:lang/words", glossaryHandler.Words)
	dash.Post("/glossary/:lang/words", glossaryHandler.AddWord)
	dash.Delete("/glossary/:lang/words/:word", glossaryHandler.DeleteWord)
	dash.Delete("/glossary/:lang/words", glossaryHandler.DeleteAll)
	dash.Post("/glossary/:lang/upload", glossaryHandler.Upload)

	dash.Get("/runs", runsHandler.List)
	dash.Get("/runs/count", runsHandler.Count)
	dash.Post("/runs/retry-all", runsHandler.RetryAllFailed)
	dash.Get("/runs/:id", runsHandler.Get)
	dash.Put("/runs/:id/metadata", runsHandler.UpdateMetadata)
	dash.Get("/runs/:id/versions", runsHandler.Versions)
	dash.Get("/runs/:id/versions/:versionId", runsHandler.VersionContent)
	dash.Post("/runs/:id/retry", runsHandler.Retry)

	// WebSocket route
	app.Get("/ws/player/:id", websocket.New(playerHandler.Handle))

	// Get server logs
	app.Get("/logs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"logs": logBuffer.GetLogs(),
		})
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	log.Printf("🚀 Dashboard starting on %s", addr)
	log.Println("📝 Endpoints:")
	log.Println("   GET  /api/dashboard/jobs          - Live job list")
	log.Println("   POST /api/dashboard/jobs/upload   - Upload media for processing")
	log.Println("   GET  /api/dashboard/jobs/:id      - Live job detail")
	log.Println("   POST /api/dashboard/jobs/:id/export - Export course-only artifact")
	log.Println("   GET  /api/dashboard/runs          - Paper parse run review")
	log.Println("   GET  /ws/player/:id               - Player sync WebSocket")
	log.Println("   GET  /logs                        - View server logs")
	log.Println("   GET  /health                      - Health check")

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down gracefully...")
		cancel()
		app.Shutdown()
	}()

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// LogBuffer captures logs in memory
type LogBuffer struct {
	lines []string
	mu    sync.Mutex
}

func (lb *LogBuffer) Write(p []byte) (n int, err error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	// Append new line
	lb.lines = append(lb.lines, string(p))

	// Keep last 1000 lines
	if len(lb.lines) > 1000 {
		lb.lines = lb.lines[len(lb.lines)-1000:]
	}

	return len(p), nil
}

func (lb *LogBuffer) GetLogs() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	// Return copy of slice
	logs := make([]string, len(lb.lines))
	copy(logs, lb.lines)
	return logs
}

// loadConfig loads configuration from YAML file
func loadConfig(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
