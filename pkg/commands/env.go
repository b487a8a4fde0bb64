package commands

import (
	"context"
	"errors"
	"os"

	"go.uber.org/zap"

	"tableflip.dev/daynotes/pkg/app"
	"tableflip.dev/daynotes/pkg/authn"
	"tableflip.dev/daynotes/pkg/backend"
	"tableflip.dev/daynotes/pkg/config"
	"tableflip.dev/daynotes/pkg/logging"
	"tableflip.dev/daynotes/pkg/printers"
	"tableflip.dev/daynotes/pkg/session"
	"tableflip.dev/daynotes/pkg/timeutil"
)

// ErrSignedOut is returned by commands that need a user when none is cached
// on this device.
var ErrSignedOut = errors.New("not signed in, run `daynotes login` first")

// env is everything a command needs, opened from the config.
type env struct {
	Config   *config.File
	Logger   *zap.Logger
	Backend  *backend.Backend
	Sessions *session.Manager
	Service  *app.Service
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if backendFlag != "" {
		cfg.Backend = backendFlag
	}
	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	b, err := backend.Open(cfg, backend.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	secret, err := b.Secret(ctx, cfg.Auth.Secret)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	provider, err := authn.NewLocal(b.Docs, authn.Config{
		Secret:      secret,
		RecentLogin: cfg.Auth.RecentLogin,
		TokenTTL:    cfg.Auth.TokenTTL,
	}, authn.WithLogger(logger))
	if err != nil {
		_ = b.Close()
		return nil, err
	}

	return &env{
		Config:   cfg,
		Logger:   logger,
		Backend:  b,
		Sessions: session.NewManager(provider, b.Docs, b.KV, session.WithLogger(logger)),
		Service:  &app.Service{Store: b.Docs, Clock: timeutil.System, Logger: logger},
	}, nil
}

// user restores the cached session.
func (e *env) user(ctx context.Context) (session.Context, error) {
	sc, ok := e.Sessions.AutoLogin(ctx)
	if !ok {
		return session.Context{}, ErrSignedOut
	}
	return sc, nil
}

func (e *env) printer(showID bool) printers.PrettyPrint {
	return printers.PrettyPrint{ShowID: showID, Locale: e.Config.Locale}
}

func (e *env) Close() {
	_ = e.Logger.Sync()
	if err := e.Backend.Close(); err != nil {
		e.Logger.Warn("backend close failed", zap.Error(err))
	}
}

// withEnv opens an env for one command run, hands it to fn and closes it.
func withEnv(fn func(ctx context.Context, e *env) error) error {
	ctx := context.Background()
	e, err := openEnv(ctx)
	if err != nil {
		return output.HandleError(err)
	}
	defer e.Close()
	return output.HandleError(fn(ctx, e))
}

// withUser is withEnv for commands that need a signed in user. Restoring
// the session counts as a start, so yesterday's notes are archived before
// the command sees the live set.
func withUser(fn func(ctx context.Context, e *env, sc session.Context) error) error {
	return withEnv(func(ctx context.Context, e *env) error {
		sc, err := e.user(ctx)
		if err != nil {
			return err
		}
		e.startup(ctx, sc.UID)
		return fn(ctx, e, sc)
	})
}

// startup runs the rollover check for a user that just became available.
// Failures are logged; the next start or the watch timer retries.
func (e *env) startup(ctx context.Context, uid string) {
	c, err := e.controller(uid)
	if err != nil {
		e.Logger.Warn("startup rollover check skipped", zap.String("uid", uid), zap.Error(err))
		return
	}
	if _, err := c.CheckAndRollover(ctx); err != nil {
		e.Logger.Warn("startup rollover check failed", zap.String("uid", uid), zap.Error(err))
	}
}
