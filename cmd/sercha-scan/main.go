package main

// @title           Sercha Scan API
// @version         1.0
// @description     Scanned-document workspace API. Import page images, correct and reorder pages, run OCR, search text across documents and export searchable PDFs.

// @contact.name   Sercha OSS
// @contact.url    https://github.com/custodia-labs/sercha-scan/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-scan/internal/adapters/driven/export/pdf"
	"github.com/custodia-labs/sercha-scan/internal/adapters/driven/export/script"
	"github.com/custodia-labs/sercha-scan/internal/adapters/driven/filesystem"
	"github.com/custodia-labs/sercha-scan/internal/adapters/driven/memory"
	redisqueue "github.com/custodia-labs/sercha-scan/internal/adapters/driven/queue/redis"
	redisadapter "github.com/custodia-labs/sercha-scan/internal/adapters/driven/redis"
	"github.com/custodia-labs/sercha-scan/internal/adapters/driven/stemmer"
	"github.com/custodia-labs/sercha-scan/internal/adapters/driven/tesseract"
	"github.com/custodia-labs/sercha-scan/internal/adapters/driven/vision"
	"github.com/custodia-labs/sercha-scan/internal/adapters/driven/xmlcodec"
	"github.com/custodia-labs/sercha-scan/internal/adapters/driving/http"
	"github.com/custodia-labs/sercha-scan/internal/config"
	"github.com/custodia-labs/sercha-scan/internal/core/domain"
	"github.com/custodia-labs/sercha-scan/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-scan/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-scan/internal/core/services"
	"github.com/custodia-labs/sercha-scan/internal/runtime"
	"github.com/custodia-labs/sercha-scan/internal/worker"
)

var version = "dev"

func main() {
	configPath := flag.String("config", os.Getenv("SERCHA_CONFIG"), "Path to the config YAML file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.ApplyEnv()

	// Run mode from RUN_MODE, the config file or the command line
	if flag.NArg() > 0 {
		cfg.RunMode = flag.Arg(0)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	log.Printf("sercha-scan %s starting in %s mode", version, cfg.RunMode)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutdown signal received, stopping...")
		cancel()
	}()

	// Persistence: one XML file per document and page plus the startup file
	files := filesystem.New()
	codec := xmlcodec.NewCodec(xmlcodec.Config{Files: files, Logger: logger})
	stateStore := xmlcodec.NewStateStore(cfg.StartupPath(), codec)

	// Task queue and lock: Redis when configured, in process otherwise
	var (
		taskQueue       driven.TaskQueue
		distributedLock driven.DistributedLock
	)
	queueBackend := "memory"
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		redisClient := redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()

		queue, err := redisqueue.NewQueue(ctx, redisClient, redisqueue.Config{
			ConsumerName: consumerName(),
			TaskTTL:      cfg.Worker.TaskRetention,
			Logger:       logger,
		})
		if err != nil {
			log.Fatalf("Failed to create Redis task queue: %v", err)
		}
		taskQueue = queue
		distributedLock = redisadapter.NewLock(redisClient)
		queueBackend = "redis"
		log.Println("Redis connected: task queue and locks use Redis")
	} else {
		taskQueue = memory.NewQueue()
		distributedLock = memory.NewLock()
		log.Println("REDIS_URL not set: task queue and locks are in process")
		if cfg.RunMode == config.ModeWorker {
			log.Println("Warning: worker mode without Redis only sees tasks it enqueues itself")
		}
	}
	defer taskQueue.Close()

	runtimeServices := runtime.NewServices(domain.NewRuntimeConfig(queueBackend))

	// Core services
	queryStemmer, err := stemmer.New(cfg.Search.Stemmer)
	if err != nil {
		log.Fatalf("Invalid stemmer: %v", err)
	}
	documentService := services.NewDocumentService(services.DocumentServiceConfig{
		Codec:  codec,
		Files:  files,
		Logger: logger,
	})
	searchService := services.NewSearchService(services.SearchServiceConfig{
		Stemmer:   queryStemmer,
		StopWords: cfg.Search.StopWords,
		Logger:    logger,
	})
	workspace := services.NewWorkspaceService(services.WorkspaceServiceConfig{
		Root:          cfg.Workspace.Root,
		Documents:     documentService,
		Search:        searchService,
		Codec:         codec,
		Files:         files,
		State:         stateStore,
		Vision:        vision.NewEstimator(logger),
		Queue:         taskQueue,
		SearchOptions: cfg.SearchOptions(),
		OCROnImport:   cfg.OCR.OnImport,
		Logger:        logger,
	})

	// Missing or malformed documents are skipped; the workspace stays usable
	if err := workspace.Startup(ctx); err != nil {
		log.Printf("Warning: workspace loaded with problems: %v", err)
	}
	log.Printf("Workspace %s loaded (%d documents)", cfg.Workspace.Root, len(workspace.Documents()))

	// OCR engine: the path saved in the startup file wins over configuration
	ocrFactory := tesseract.NewFactory(cfg.OCR.Language, logger)
	configureOCR(ctx, ocrFactory, runtimeServices, workspace.State().OCREnginePath, cfg.OCR.TesseractPath)

	exporter := newExporter(cfg, codec, logger)
	runtimeServices.SetExporter(exporter)
	log.Printf("Exporter: %s", exporter.Name())

	ocrService := services.NewOCRService(services.OCRServiceConfig{
		Workspace: workspace,
		Services:  runtimeServices,
		Timeout:   cfg.OCR.Timeout,
		Logger:    logger,
	})
	exportService := services.NewExportService(services.ExportServiceConfig{
		Workspace:      workspace,
		OCR:            ocrService,
		Services:       runtimeServices,
		Timeout:        cfg.Export.Timeout,
		OCRConcurrency: cfg.Export.OCRConcurrency,
		Logger:         logger,
	})
	settingsService := services.NewSettingsService(workspace, ocrFactory, runtimeServices, logger)

	janitor := worker.NewJanitor(worker.JanitorConfig{
		TaskQueue: taskQueue,
		Lock:      distributedLock,
		Logger:    logger,
		Interval:  cfg.Worker.JanitorInterval,
		Retention: cfg.Worker.TaskRetention,
	})
	w := worker.NewWorker(worker.WorkerConfig{
		TaskQueue:      taskQueue,
		OCR:            ocrService,
		Export:         exportService,
		Lock:           distributedLock,
		Janitor:        janitor,
		Logger:         logger,
		Concurrency:    cfg.Worker.Concurrency,
		DequeueTimeout: cfg.Worker.DequeueTimeout,
		LockTTL:        cfg.Export.Timeout + time.Minute,
	})

	switch cfg.RunMode {
	case config.ModeAPI:
		// API-only mode: HTTP server, no worker
		runAPI(cfg, workspace, settingsService, taskQueue, distributedLock)

	case config.ModeWorker:
		// Worker-only mode: task processing, no HTTP server
		runWorkerMode(ctx, w)

	case config.ModeAll:
		// Combined mode: worker in the background, API in the foreground
		if err := w.Start(ctx); err != nil {
			log.Fatalf("Failed to start worker: %v", err)
		}
		runAPI(cfg, workspace, settingsService, taskQueue, distributedLock)
		log.Println("Stopping worker...")
		w.Stop()
	}

	// Persist the working document and startup state
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := workspace.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to save workspace: %v", err)
	}
	_ = runtimeServices.Close()
	log.Println("sercha-scan stopped")
}

func runAPI(
	cfg *config.Config,
	workspace driving.WorkspaceService,
	settingsService driving.SettingsService,
	taskQueue driven.TaskQueue,
	lock driven.DistributedLock,
) {
	server := http.NewServer(
		http.Config{
			Host:           cfg.Server.Host,
			Port:           cfg.Server.Port,
			Version:        version,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Logger:         slog.Default(),
		},
		workspace,
		settingsService,
		taskQueue,
		lock,
	)

	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// runWorkerMode runs the worker until the context is cancelled
func runWorkerMode(ctx context.Context, w *worker.Worker) {
	log.Println("Starting worker mode...")

	if err := w.Start(ctx); err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}

	log.Println("Worker started, processing tasks...")
	log.Println("Worker handles:")
	log.Println("  - ocr_page: Recognise the text of one page")
	log.Println("  - export_pdf: Export a document as a searchable PDF")

	<-ctx.Done()

	log.Println("Stopping worker...")
	w.Stop()
	log.Println("Worker stopped")
}

// configureOCR installs the first engine path that passes its health check
func configureOCR(ctx context.Context, factory driven.OCREngineFactory, rs *runtime.Services, paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		engine, err := factory.Create(path)
		if err != nil {
			log.Printf("Warning: OCR engine %q unavailable: %v", path, err)
			continue
		}
		if err := rs.ValidateAndSetOCR(ctx, engine); err != nil {
			log.Printf("Warning: OCR engine %q failed health check: %v", path, err)
			continue
		}
		log.Printf("OCR engine: %s", engine.Path())
		return
	}
	log.Println("OCR not configured: set it through /api/v1/settings/ocr or TESSERACT_PATH")
}

func newExporter(cfg *config.Config, codec driven.MetadataCodec, logger *slog.Logger) driven.Exporter {
	if cfg.Export.Backend == config.ExportScript {
		return script.NewExporter(script.Config{
			Python: cfg.Export.Python,
			Script: cfg.Export.Script,
			Logger: logger,
		})
	}
	return pdf.NewExporter(pdf.Config{
		Codec:    codec,
		Optimize: cfg.Export.Optimize,
		Logger:   logger,
	})
}

// consumerName identifies this process in the Redis consumer group
func consumerName() string {
	host, err := os.Hostname()
	if err != nil {
		host = "sercha-scan"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
