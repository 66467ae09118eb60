package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/threadsync/pkg/domain/interfaces"
	"github.com/secmon-lab/threadsync/pkg/repository/comment"
	"github.com/secmon-lab/threadsync/pkg/repository/firestore"
	"github.com/secmon-lab/threadsync/pkg/repository/memory"
	"github.com/secmon-lab/threadsync/pkg/service/github"
	"github.com/secmon-lab/threadsync/pkg/usecase"
	"github.com/secmon-lab/threadsync/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const (
	TrackerBackendComment   = "comment"
	TrackerBackendFirestore = "firestore"
	TrackerBackendMemory    = "memory"

	LockBackendNone      = "none"
	LockBackendMemory    = "memory"
	LockBackendFirestore = "firestore"
)

// Repository holds CLI flags for the tracker store and the issue lock
type Repository struct {
	trackerBackend   string
	lockBackend      string
	lockTTL          time.Duration
	projectID        string
	databaseID       string
	collectionPrefix string
}

// Flags returns CLI flags for repository configuration
func (r *Repository) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "tracker-backend",
			Usage:       "Where sync tracker state lives (comment, firestore or memory)",
			Category:    "Storage",
			Value:       TrackerBackendComment,
			Sources:     cli.EnvVars("THREADSYNC_TRACKER_BACKEND"),
			Destination: &r.trackerBackend,
		},
		&cli.StringFlag{
			Name:        "lock-backend",
			Usage:       "Per-issue lock backend (none, memory or firestore)",
			Category:    "Storage",
			Value:       LockBackendNone,
			Sources:     cli.EnvVars("THREADSYNC_LOCK_BACKEND"),
			Destination: &r.lockBackend,
		},
		&cli.DurationFlag{
			Name:        "lock-ttl",
			Usage:       "Lifetime of a per-issue lock before another run may take it over",
			Category:    "Storage",
			Value:       usecase.DefaultLockTTL,
			Sources:     cli.EnvVars("THREADSYNC_LOCK_TTL"),
			Destination: &r.lockTTL,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Firestore Project ID (required when a firestore backend is selected)",
			Category:    "Storage",
			Sources:     cli.EnvVars("THREADSYNC_FIRESTORE_PROJECT_ID"),
			Destination: &r.projectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore Database ID",
			Category:    "Storage",
			Sources:     cli.EnvVars("THREADSYNC_FIRESTORE_DATABASE_ID"),
			Destination: &r.databaseID,
		},
		&cli.StringFlag{
			Name:        "firestore-collection-prefix",
			Usage:       "Prefix prepended to Firestore collection names",
			Category:    "Storage",
			Sources:     cli.EnvVars("THREADSYNC_FIRESTORE_COLLECTION_PREFIX"),
			Destination: &r.collectionPrefix,
		},
	}
}

func (r Repository) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("tracker_backend", r.trackerBackend),
		slog.String("lock_backend", r.lockBackend),
		slog.Duration("lock_ttl", r.lockTTL),
		slog.String("project_id", r.projectID),
		slog.String("database_id", r.databaseID),
		slog.String("collection_prefix", r.collectionPrefix),
	)
}

// ProjectID returns the Firestore project ID
func (r *Repository) ProjectID() string {
	return r.projectID
}

// DatabaseID returns the Firestore database ID
func (r *Repository) DatabaseID() string {
	return r.databaseID
}

// CollectionPrefix returns the Firestore collection prefix
func (r *Repository) CollectionPrefix() string {
	return r.collectionPrefix
}

// Storage is the configured tracker store and optional issue lock.
// The caller is responsible for calling Close().
type Storage struct {
	Tracker interfaces.TrackerStore
	Locker  interfaces.IssueLocker
	LockTTL time.Duration

	closers []func() error
}

// Close releases backend clients
func (s *Storage) Close() error {
	var firstErr error
	for _, c := range s.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// UseCaseOptions returns the usecase options wiring this storage
func (s *Storage) UseCaseOptions() []usecase.Option {
	opts := []usecase.Option{usecase.WithTrackerStore(s.Tracker)}
	if s.Locker != nil {
		opts = append(opts, usecase.WithLocker(s.Locker, s.LockTTL))
	}
	return opts
}

// Validate checks backend names and required Firestore settings without connecting
func (r *Repository) Validate() error {
	switch r.trackerBackend {
	case TrackerBackendComment, TrackerBackendFirestore, TrackerBackendMemory:
	default:
		return goerr.Wrap(ErrInvalidBackend, "invalid tracker backend", goerr.V(BackendKey, r.trackerBackend))
	}

	switch r.lockBackend {
	case LockBackendNone, LockBackendMemory, LockBackendFirestore:
	default:
		return goerr.Wrap(ErrInvalidBackend, "invalid lock backend", goerr.V(BackendKey, r.lockBackend))
	}

	if r.usesFirestore() && r.projectID == "" {
		return goerr.Wrap(ErrInvalidConfig, "firestore-project-id is required when using firestore backend")
	}

	if r.lockBackend != LockBackendNone && r.lockTTL <= 0 {
		return goerr.Wrap(ErrInvalidConfig, "lock-ttl must be positive", goerr.V("lock_ttl", r.lockTTL))
	}

	return nil
}

func (r *Repository) usesFirestore() bool {
	return r.trackerBackend == TrackerBackendFirestore || r.lockBackend == LockBackendFirestore
}

// Configure initializes the tracker store and lock based on the configured backends.
// gh is used by the comment tracker backend.
func (r *Repository) Configure(ctx context.Context, gh github.Service) (*Storage, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	storage := &Storage{LockTTL: r.lockTTL}

	var fs *firestore.Firestore
	if r.usesFirestore() {
		var opts []firestore.Option
		if r.collectionPrefix != "" {
			opts = append(opts, firestore.WithCollectionPrefix(r.collectionPrefix))
		}
		client, err := firestore.New(ctx, r.projectID, r.databaseID, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize firestore repository")
		}
		fs = client
		storage.closers = append(storage.closers, fs.Close)
		logging.Default().Info("Using Firestore repository",
			"project_id", r.projectID,
			"database_id", r.databaseID,
		)
	}

	var mem *memory.Memory
	if r.trackerBackend == TrackerBackendMemory || r.lockBackend == LockBackendMemory {
		mem = memory.New()
		logging.Default().Info("Using in-memory repository (development mode)")
	}

	switch r.trackerBackend {
	case TrackerBackendComment:
		storage.Tracker = comment.New(gh)
	case TrackerBackendFirestore:
		storage.Tracker = fs.Tracker()
	case TrackerBackendMemory:
		storage.Tracker = mem.Tracker()
	}

	switch r.lockBackend {
	case LockBackendMemory:
		storage.Locker = mem.Locker()
	case LockBackendFirestore:
		storage.Locker = fs.Locker()
	}

	return storage, nil
}
