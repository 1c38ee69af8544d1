// Command publish uploads a model's artifacts so the server can load it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"mlserve/config"
	"mlserve/logging"
	"mlserve/ml"
	"mlserve/serving"
	"mlserve/storage"
)

type options struct {
	modelID  string
	dir      string
	compress bool
	verify   bool
	retries  uint64
	backoff  time.Duration
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	modelID := flag.String("model", "", "model id to publish under")
	dir := flag.String("dir", ".", "directory holding model.bin and schema.json")
	compress := flag.Bool("compress", false, "zstd-compress model.bin before upload")
	verify := flag.Bool("verify", true, "load the model locally before uploading")
	retries := flag.Uint64("retries", 5, "max retries per artifact on storage errors")
	flag.Parse()

	if *modelID == "" {
		log.Fatal("model is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, _, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gateway, err := cfg.OpenGateway(ctx, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}

	opts := options{
		modelID:  *modelID,
		dir:      *dir,
		compress: *compress,
		verify:   *verify,
		retries:  *retries,
		backoff:  500 * time.Millisecond,
	}
	if err := publish(ctx, gateway, ml.NewDefaultRegistry(), opts, logger); err != nil {
		logger.Fatal("publish failed", zap.String("model_id", opts.modelID), zap.Error(err))
	}
	fmt.Printf("model %s published\n", opts.modelID)
}

func publish(ctx context.Context, gateway storage.Gateway, registry *ml.AdapterRegistry, opts options, logger *zap.Logger) error {
	schema, err := os.ReadFile(filepath.Join(opts.dir, serving.SchemaArtifact))
	if err != nil {
		return err
	}
	model, err := os.ReadFile(filepath.Join(opts.dir, serving.ModelArtifact))
	if err != nil {
		return err
	}
	if opts.compress {
		if model, err = ml.CompressArtifact(model); err != nil {
			return fmt.Errorf("compress %s: %w", serving.ModelArtifact, err)
		}
	}

	if opts.verify {
		adapter, err := verify(schema, model, registry)
		if err != nil {
			return fmt.Errorf("verify: %w", err)
		}
		logger.Info("artifacts verified", zap.String("adapter", adapter))
	}

	// schema last, so a half-published model has no schema yet
	for _, a := range []struct {
		name string
		data []byte
	}{
		{serving.ModelArtifact, model},
		{serving.SchemaArtifact, schema},
	} {
		key := opts.modelID + "/" + a.name
		if err := upload(ctx, gateway, key, a.data, opts, logger); err != nil {
			return err
		}
		logger.Info("uploaded", zap.String("key", key), zap.Int("bytes", len(a.data)))
	}
	return nil
}

// verify runs the same parse, resolve and load steps the server does.
func verify(schema, model []byte, registry *ml.AdapterRegistry) (string, error) {
	md, err := ml.ParseMetadata(schema)
	if err != nil {
		return "", err
	}
	adapter, err := registry.Resolve(md)
	if err != nil {
		return "", err
	}
	if _, err := adapter.Load(model, md); err != nil {
		return "", err
	}
	return adapter.Name(), nil
}

// upload retries only transport failures, with Fibonacci backoff.
func upload(ctx context.Context, gateway storage.Gateway, key string, data []byte, opts options, logger *zap.Logger) error {
	b := retry.WithMaxRetries(opts.retries, retry.NewFibonacci(opts.backoff))
	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := gateway.Put(ctx, key, data)
		if err == nil {
			return nil
		}
		if errors.Is(err, storage.ErrUnavailable) {
			logger.Warn("upload failed, retrying", zap.String("key", key), zap.Int("attempt", attempt), zap.Error(err))
			return retry.RetryableError(err)
		}
		return err
	})
}
