// Package wire provides dependency injection for the bulkedit application.
// It creates singleton services with lazy initialization.
package wire

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/example/bulkedit/internal/adapters/executor"
	"github.com/example/bulkedit/internal/adapters/sqlite"
	"github.com/example/bulkedit/internal/app"
	"github.com/example/bulkedit/internal/config"
	"github.com/example/bulkedit/internal/core/change"
	"github.com/example/bulkedit/internal/db"
	"github.com/example/bulkedit/internal/ports/primary"
	"github.com/example/bulkedit/internal/retry"
)

var (
	cfg            *config.Config
	database       *sql.DB
	redisClient    *redis.Client
	localExecutor  *executor.LocalExecutor
	redisExecutor  *executor.RedisExecutor
	sessionService primary.SessionService
	changeService  primary.ChangeLogService
	commitService  *app.CommitServiceImpl
	historyService primary.HistoryService
	recordService  primary.RecordService
	once           sync.Once
	initErr        error
)

// Init initializes all services from c. ctx carries the logger and bounds
// the lifetime of commit runs executed in this process. Later calls return
// the result of the first.
func Init(ctx context.Context, c *config.Config) error {
	once.Do(func() {
		cfg = c
		initErr = initServices(ctx)
	})
	return initErr
}

func ensure() {
	if cfg == nil || initErr != nil {
		panic(fmt.Sprintf("wire: services not initialized: %v", initErr))
	}
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices(ctx context.Context) error {
	if err := change.ValidateRegistry(); err != nil {
		return err
	}

	var err error
	database, err = db.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	// Create repository adapters (secondary ports) - sqlite adapters with injected DB
	sessionRepo := sqlite.NewSessionRepository(database)
	recordStore := sqlite.NewRecordStore(database)
	auditRepo := sqlite.NewAuditLogRepository(database)
	logWriter := sqlite.NewLogWriterAdapter(auditRepo)

	switch cfg.Executor.Kind {
	case config.ExecutorRedis:
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Executor.RedisAddr,
			Password: cfg.Executor.RedisPassword,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis at %s: %w", cfg.Executor.RedisAddr, err)
		}
		redisExecutor = executor.NewRedisExecutor(redisClient, cfg.Executor.RedisQueue)
		commitService = app.NewCommitService(sessionRepo, recordStore, recordStore, redisExecutor, logWriter, CommitOptions(cfg.Commit))
		redisExecutor.Register(app.TaskCommitSession, commitService.HandleTask)
	default:
		localExecutor = executor.NewLocalExecutor(ctx)
		commitService = app.NewCommitService(sessionRepo, recordStore, recordStore, localExecutor, logWriter, CommitOptions(cfg.Commit))
		localExecutor.Register(app.TaskCommitSession, commitService.HandleTask)
	}

	// Create services (primary ports implementation)
	sessionService = app.NewSessionService(sessionRepo, logWriter)
	changeService = app.NewChangeLogService(sessionRepo, recordStore, logWriter)
	historyService = app.NewHistoryService(sessionRepo, auditRepo)
	recordService = app.NewRecordService(sessionRepo, recordStore, recordStore)
	return nil
}

// CommitOptions maps the commit section of the config file onto pipeline options.
func CommitOptions(c config.CommitConfig) app.CommitOptions {
	r := retry.DefaultConfig()
	r.MaxAttempts = c.MaxAttempts
	r.InitialBackoff = c.InitialBackoff
	r.MaxBackoff = c.MaxBackoff
	return app.CommitOptions{
		BatchSize:       c.BatchSize,
		Concurrency:     c.Concurrency,
		WritesPerSecond: c.WritesPerSecond,
		Retry:           r,
	}
}

// Config returns the loaded configuration.
func Config() *config.Config {
	ensure()
	return cfg
}

// DB returns the shared database connection.
func DB() *sql.DB {
	ensure()
	return database
}

// SessionService returns the singleton SessionService instance.
func SessionService() primary.SessionService {
	ensure()
	return sessionService
}

// ChangeLogService returns the singleton ChangeLogService instance.
func ChangeLogService() primary.ChangeLogService {
	ensure()
	return changeService
}

// CommitService returns the singleton CommitService instance.
func CommitService() primary.CommitService {
	ensure()
	return commitService
}

// HistoryService returns the singleton HistoryService instance.
func HistoryService() primary.HistoryService {
	ensure()
	return historyService
}

// RecordService returns the singleton RecordService instance.
func RecordService() primary.RecordService {
	ensure()
	return recordService
}

// RunsLocally reports whether commit runs execute inside this process.
func RunsLocally() bool {
	ensure()
	return localExecutor != nil
}

// WaitTasks blocks until commit runs started by this process return.
func WaitTasks() {
	ensure()
	if localExecutor != nil {
		localExecutor.Wait()
	}
}

// Serve drains the task queue until ctx is canceled. With the local
// executor it waits for tasks already submitted by this process.
func Serve(ctx context.Context) error {
	ensure()
	if redisExecutor != nil {
		return redisExecutor.Serve(ctx)
	}
	localExecutor.Wait()
	return nil
}

// Close releases the database and redis connections.
func Close() {
	if redisClient != nil {
		_ = redisClient.Close()
		redisClient = nil
	}
	if database != nil {
		_ = database.Close()
		database = nil
	}
}
