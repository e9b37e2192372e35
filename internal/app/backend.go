package app

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/five82/shoplist/internal/config"
	"github.com/five82/shoplist/internal/identity"
	"github.com/five82/shoplist/internal/remote"
)

// backend bundles the remote store with the identity provider that matches it.
type backend struct {
	store    remote.Store
	provider identity.Provider
	// tokens reports whether sign-in expects a Firebase ID token rather than a uid.
	tokens bool
}

func (b backend) credentialHint() string {
	if b.tokens {
		return "Paste a Firebase ID token."
	}
	return "Enter your user id."
}

func openBackend(ctx context.Context, cfg config.Config, logger zerolog.Logger) (backend, error) {
	switch cfg.Backend {
	case config.BackendFirestore:
		return openFirestore(ctx, cfg, logger)
	case config.BackendRedis:
		store, err := remote.NewRedisStore(ctx, remote.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		if err != nil {
			return backend{}, fmt.Errorf("open redis backend: %w", err)
		}
		return backend{store: store, provider: identity.StaticProvider{}}, nil
	default:
		return backend{store: remote.NewMemoryStore(), provider: identity.StaticProvider{}}, nil
	}
}

func openFirestore(ctx context.Context, cfg config.Config, logger zerolog.Logger) (backend, error) {
	var clientOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	fsClient, err := firestore.NewClient(ctx, cfg.ProjectID, clientOpts...)
	if err != nil {
		return backend{}, fmt.Errorf("firestore client (project=%s): %w", cfg.ProjectID, err)
	}
	store, err := remote.NewFirestoreStore(fsClient, cfg.UsersCollection, cfg.ShareCodesCollection, logger)
	if err != nil {
		_ = fsClient.Close()
		return backend{}, err
	}

	fbApp, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, clientOpts...)
	if err != nil {
		_ = store.Close()
		return backend{}, fmt.Errorf("firebase app: %w", err)
	}
	authClient, err := fbApp.Auth(ctx)
	if err != nil {
		_ = store.Close()
		return backend{}, fmt.Errorf("firebase auth: %w", err)
	}

	logger.Info().Str("project", cfg.ProjectID).Msg("firestore backend ready")
	return backend{
		store:    store,
		provider: identity.NewFirebaseProvider(authClient),
		tokens:   true,
	}, nil
}
