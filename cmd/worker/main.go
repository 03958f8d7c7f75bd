package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/nova-social/nova-faces/internal/config"
	"github.com/nova-social/nova-faces/internal/models"
	"github.com/nova-social/nova-faces/internal/observability"
	"github.com/nova-social/nova-faces/internal/queue"
	"github.com/nova-social/nova-faces/internal/recognition"
	"github.com/nova-social/nova-faces/internal/storage"
	"github.com/nova-social/nova-faces/internal/vision"
)

const analysisWorkers = 4

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting Nova analysis worker",
		"workers", analysisWorkers,
		"cpu_cores", runtime.NumCPU(),
	)

	// Initialize ONNX Runtime
	ort.SetSharedLibraryPath(getONNXLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Error("init onnx runtime", "error", err)
		os.Exit(1)
	}
	defer ort.DestroyEnvironment()

	// Connect to Postgres
	db, err := storage.NewPostgresStore(cfg.Database, cfg.Vision.EmbeddingDim)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connect to MinIO
	media, err := storage.NewMediaStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load models up front so the first job doesn't pay for it.
	detector := vision.NewAdapter(cfg.Vision, vision.StdCodec{})
	defer detector.Close()
	if err := detector.Initialize(ctx); err != nil {
		slog.Error("load vision models", "error", err)
		os.Exit(1)
	}
	slog.Info("vision models loaded", "embedding_dim", detector.EmbeddingDim())

	svc := recognition.NewService(detector, db, media, cfg.Matching)

	// Create NATS consumer
	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	// Start consuming analysis jobs
	err = consumer.ConsumeJobs(ctx, "analysis-workers", func(ctx context.Context, msg jetstream.Msg) error {
		var job models.AnalysisJob
		if err := json.Unmarshal(msg.Data(), &job); err != nil {
			slog.Error("unmarshal analysis job", "error", err)
			return nil // Don't retry on unmarshal errors
		}

		report, err := svc.AnalyzePublication(ctx, job.Images)
		if err != nil {
			return fmt.Errorf("analyze publication %s: %w", job.PublicationID, err)
		}

		result := models.AnalysisResult{
			JobID:         job.JobID,
			PublicationID: job.PublicationID,
			Report:        *report,
			CompletedAt:   time.Now().UTC(),
		}
		if err := producer.PublishResult(ctx, job.JobID.String(), result); err != nil {
			return fmt.Errorf("publish result %s: %w", job.JobID, err)
		}

		slog.Info("publication analyzed",
			"publication", job.PublicationID,
			"images", len(job.Images),
			"faces", report.TotalFaces,
		)
		return nil
	}, analysisWorkers)
	if err != nil {
		slog.Error("start analysis consumer", "error", err)
		os.Exit(1)
	}

	// Metrics endpoint
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		slog.Info("worker metrics listening", "addr", ":8082")
		if err := http.ListenAndServe(":8082", mux); err != nil {
			slog.Error("metrics server error", "error", err)
		}
	}()

	// Periodically report queue depth
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				depth, err := producer.QueueDepth(ctx)
				if err == nil {
					observability.AnalysisQueueDepth.Set(float64(depth))
				}
			}
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down worker...")
	cancel()
	time.Sleep(2 * time.Second)
	slog.Info("worker stopped")
}

// getONNXLibPath returns the ONNX Runtime shared library path
// based on the operating system.
func getONNXLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "linux":
		return "libonnxruntime.so"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "onnxruntime.dll"
	}
}
