package backend

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"emprest/internal/amqp"
	"emprest/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend opens the configured blob store and, when an AMQP URL is
// set, the change notifier. A broker that cannot be reached is logged and
// skipped; the loan store works without it.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	blobs, err := f.createBlobStore(ctx, config)
	if err != nil {
		return nil, err
	}

	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without notifications", "error", err)
			amqpClient = nil
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	f.logger.InfoContext(ctx, "Initialized backend",
		"backend", config.Type,
		"amqp_enabled", amqpClient != nil)

	return &BackendResult{
		Blobs:   blobs,
		AMQP:    amqpClient,
		Cleanup: cleanup(blobs, amqpClient),
	}, nil
}

func (f *DefaultFactory) createBlobStore(ctx context.Context, config Config) (storage.BlobStore, error) {
	switch config.Type {
	case MemoryBackend:
		f.logger.WarnContext(ctx, "Memory backend selected, loans are lost on restart")
		return storage.NewMemoryStore(), nil
	case FileBackend:
		s, err := storage.NewFileStore(config.DataDirectory)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file store: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized file backend", "data_directory", config.DataDirectory)
		return s, nil
	case SQLiteBackend:
		s, err := storage.NewSQLiteBlobStore(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath, "schema_version", s.SchemaVersion())
		return s, nil
	case PostgresBackend:
		s, err := storage.NewPostgresBlobStore(ctx, config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres store: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized Postgres backend")
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func cleanup(blobs storage.BlobStore, amqpClient *amqp.Client) CleanupFunc {
	return func() error {
		var errs []error

		if c, ok := blobs.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("storage: %w", err))
			}
		}

		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				errs = append(errs, fmt.Errorf("amqp: %w", err))
			}
		}

		if len(errs) > 0 {
			return fmt.Errorf("close backend: %v", errs)
		}
		return nil
	}
}
