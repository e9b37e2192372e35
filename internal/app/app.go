package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/five82/shoplist/internal/config"
	"github.com/five82/shoplist/internal/identity"
	"github.com/five82/shoplist/internal/localcache"
	"github.com/five82/shoplist/internal/logging"
	"github.com/five82/shoplist/internal/prefs"
	"github.com/five82/shoplist/internal/syncer"
	"github.com/five82/shoplist/internal/ui"
)

// Options configure the shoplist application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/shoplist/prefs.toml

	User     string // static uid for the memory and redis backends
	IDToken  string // Firebase ID token for the firestore backend
	JoinCode string // share code to join as a guest

	// ExportPath and ImportPath run a catalog transfer and exit without the TUI.
	ExportPath string
	ImportPath string
}

func (o Options) batch() bool {
	return o.ExportPath != "" || o.ImportPath != ""
}

// Run boots shoplist until the TUI exits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, logCloser, err := logging.New(logging.Options{
		File:    cfg.LogFile,
		Level:   cfg.LogLevel,
		Console: opts.batch(),
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logCloser.Close()
	logger.Info().Str("backend", string(cfg.Backend)).Msg("starting shoplist")

	cache, err := localcache.Open(cfg.CachePath)
	if err != nil {
		return fmt.Errorf("open local cache: %w", err)
	}
	defer cache.Close()

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer be.store.Close()

	session := identity.NewSession(be.provider, cache)
	ctrl, err := syncer.New(syncer.Options{
		Cache:        cache,
		Store:        be.store,
		Logger:       logger,
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.ReadTimeout,
	})
	if err != nil {
		return fmt.Errorf("init sync controller: %w", err)
	}
	defer ctrl.Close()

	id, err := resolveIdentity(ctx, session, ctrl, be, opts)
	if err != nil {
		return err
	}
	if !id.None() {
		if err := ctrl.SetIdentity(ctx, id); err != nil {
			logger.Warn().Err(err).Msg("initial load failed; working from local cache")
		}
	}

	if opts.batch() {
		return runTransfer(ctrl, opts, logger)
	}

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		logger.Warn().Err(err).Msg("preferences unreadable; using defaults")
	}

	StartReconnector(ctx, ctrl, defaultRetryInterval, logger)

	return ui.Run(ui.Options{
		Context:        ctx,
		Controller:     ctrl,
		Session:        session,
		Logger:         logger,
		Prefs:          userPrefs,
		PrefsPath:      opts.PrefsPath,
		CredentialHint: be.credentialHint(),
	})
}

// resolveIdentity picks the identity to load at startup: a share code from the
// command line, then a credential, then whatever the session restores.
func resolveIdentity(ctx context.Context, session *identity.Session, ctrl *syncer.Controller, be backend, opts Options) (identity.Effective, error) {
	credential := strings.TrimSpace(opts.User)
	if be.tokens {
		credential = strings.TrimSpace(opts.IDToken)
	}
	code := strings.TrimSpace(opts.JoinCode)

	switch {
	case code != "" && credential != "":
		return identity.Effective{}, errors.New("pass either a credential or -join, not both")

	case code != "":
		ownerID, err := ctrl.JoinWithCode(ctx, code)
		if err != nil {
			return identity.Effective{}, fmt.Errorf("join with code %s: %w", code, err)
		}
		if session.Restore().Guest {
			if _, err := session.SignOut(); err != nil {
				return identity.Effective{}, fmt.Errorf("leave previous list: %w", err)
			}
		}
		return session.JoinAsGuest(ownerID)

	case credential != "":
		id, err := session.SignIn(ctx, credential)
		if err != nil {
			return identity.Effective{}, fmt.Errorf("sign in: %w", err)
		}
		return id, nil

	default:
		return session.Restore(), nil
	}
}

// runTransfer imports then exports the catalog for the loaded identity.
func runTransfer(ctrl *syncer.Controller, opts Options, logger zerolog.Logger) error {
	if ctrl.Identity().None() {
		return errors.New("catalog transfer needs an identity: sign in or pass -join")
	}

	if opts.ImportPath != "" {
		data, err := os.ReadFile(opts.ImportPath)
		if err != nil {
			return fmt.Errorf("read import file: %w", err)
		}
		added, err := ctrl.ImportProducts(data)
		if err != nil {
			return fmt.Errorf("import %s: %w", opts.ImportPath, err)
		}
		logger.Info().Int("added", added).Str("file", opts.ImportPath).Msg("imported products")
	}

	if opts.ExportPath != "" {
		data, err := ctrl.ExportProducts()
		if err != nil {
			return fmt.Errorf("export catalog: %w", err)
		}
		if err := os.WriteFile(opts.ExportPath, data, 0o644); err != nil {
			return fmt.Errorf("write export file: %w", err)
		}
		logger.Info().Str("file", opts.ExportPath).Msg("exported catalog")
	}

	ctrl.Wait()
	return nil
}
