package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"todobot/internal/backend/googlesheets"
	"todobot/internal/backend/sqlstore"
	"todobot/internal/bot"
	"todobot/internal/config"
	"todobot/internal/exitcode"
	"todobot/internal/instrumentation"
	"todobot/internal/logging"
	"todobot/internal/server"
	"todobot/internal/store"
	"todobot/internal/userlock"
)

// app holds the components shared by serve and say.
type app struct {
	logger   *slog.Logger
	store    store.TaskStore
	pinger   server.Pinger
	locker   userlock.Locker
	closers  []func() error
	location *time.Location
}

func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	if cfg.Debug {
		level = slog.LevelDebug
	}
	return logging.New(level, cfg.Log.Format, w)
}

// newApp opens the store and lock backends. recorder may be nil.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, recorder store.OperationRecorder) (*app, error) {
	a := &app{logger: logger}

	loc, err := cfg.Location()
	if err != nil {
		return nil, withCode(exitcode.ConfigError, err)
	}
	a.location = loc

	switch cfg.Lock.Backend {
	case config.LockRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.Lock.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, withCode(exitcode.BackendError, fmt.Errorf("connect to redis: %w", err))
		}
		a.locker = userlock.NewRedis(client, cfg.Lock.KeyPrefix, cfg.Lock.TTL, logger)
		a.closers = append(a.closers, client.Close)
	default:
		a.locker = userlock.NewMemory()
	}

	var backend store.TaskStore
	switch cfg.Store.Backend {
	case config.StoreSheets:
		c, err := googlesheets.New(ctx, googlesheets.Config{
			SpreadsheetID:   cfg.Sheets.SpreadsheetID,
			SheetName:       cfg.Sheets.SheetName,
			HeaderRows:      cfg.Sheets.HeaderRows,
			ClientEmail:     cfg.Sheets.ClientEmail,
			PrivateKey:      cfg.Sheets.PrivateKey,
			CredentialsFile: cfg.Sheets.CredentialsFile,
			OAuthClientFile: cfg.OAuthClientPath(),
			TokenFile:       cfg.TokenPath(),
		})
		if err != nil {
			a.Close()
			return nil, withCode(exitcode.ConfigError, err)
		}
		if cfg.Lock.Backend == config.LockRedis {
			c.SetSheetLock(a.locker)
		}
		backend, a.pinger = c, c

	case config.StoreSQLite:
		s, err := sqlstore.Open(cfg.SQLite.Path)
		if err != nil {
			a.Close()
			return nil, withCode(exitcode.BackendError, err)
		}
		backend, a.pinger = s, s
		a.closers = append(a.closers, s.Close)

	case config.StoreMemory:
		backend = store.NewMemory()

	default:
		a.Close()
		return nil, withCode(exitcode.ConfigError, fmt.Errorf("unknown store backend %q", cfg.Store.Backend))
	}
	a.store = store.Instrument(backend, cfg.Store.Backend, recorder)

	return a, nil
}

// router builds a Router over the app's store and lock.
func (a *app) router(cfg *config.Config, replier bot.Replier, recorder bot.Recorder, now func() time.Time) *bot.Router {
	opts := []bot.Option{
		bot.WithLocker(a.locker),
		bot.WithLockTimeout(cfg.Lock.Timeout),
		bot.WithLogger(a.logger),
		bot.WithLocation(a.location),
		bot.WithClock(now),
	}
	if recorder != nil {
		opts = append(opts, bot.WithRecorder(recorder))
	}
	return bot.NewRouter(a.store, replier, opts...)
}

// Close releases backends in reverse order of opening.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Shutdown adapts Close to a shutdown operation.
func (a *app) Shutdown(ctx context.Context) error {
	return a.Close()
}

var _ instrumentationRecorder = (*instrumentation.Metrics)(nil)

// instrumentationRecorder is everything serve records.
type instrumentationRecorder interface {
	store.OperationRecorder
	bot.Recorder
	server.HTTPRecorder
}
