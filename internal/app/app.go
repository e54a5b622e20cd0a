// Package app assembles the server: store connections, services, providers
// and the HTTP router, built once at startup.
package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/fitlog/fitness-api/internal/api"
	"github.com/fitlog/fitness-api/internal/api/cookie"
	"github.com/fitlog/fitness-api/internal/api/handler"
	"github.com/fitlog/fitness-api/internal/core/ports"
	"github.com/fitlog/fitness-api/internal/core/service"
	"github.com/fitlog/fitness-api/internal/infrastructure/oauth"
	"github.com/fitlog/fitness-api/internal/infrastructure/queue"
	"github.com/fitlog/fitness-api/internal/pkg/config"
	"github.com/fitlog/fitness-api/pkg/logger"
)

type App struct {
	cfg        *config.Config
	log        zerolog.Logger
	infra      *Infra
	dispatcher *queue.Dispatcher
	stopQueue  context.CancelFunc
	httpServer *http.Server
}

func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	infra, err := setupInfra(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	providers, err := setupProviders(ctx, cfg, log)
	if err != nil {
		_ = infra.Close(ctx)
		return nil, err
	}
	state, err := oauth.NewStateIssuer(stateSecret(cfg, log))
	if err != nil {
		_ = infra.Close(ctx)
		return nil, err
	}

	// --- Services ---
	authService := service.NewAuthService(infra.Users, cfg.Auth.BcryptCost, logger.Component(log, "auth"))
	bridge := service.NewIdentityBridge(infra.Users, logger.Component(log, "identity-bridge"))
	sessions := service.NewSessionManager(infra.Users, infra.Sessions, service.SessionPolicy{
		IdleTTL: cfg.Session.IdleTTL,
		MaxAge:  cfg.Session.MaxAge,
	}, logger.Component(log, "sessions"))

	history := service.NewLoginHistoryService(infra.LoginEvents, logger.Component(log, "login-history"))
	dispatcher := queue.NewDispatcher(cfg.LoginEventWorkers, history, logger.Component(log, "dispatcher"))
	queueCtx, stopQueue := context.WithCancel(context.Background())
	dispatcher.Start(queueCtx)

	jar := cookie.Jar{
		SessionName:   cfg.Session.CookieName,
		Secure:        cfg.CookieSecure(),
		SessionMaxAge: cfg.Session.MaxAge,
	}
	failure := handler.LoginFailurePolicy{}
	if cfg.Auth.FailureMode == config.FailureModeRedirect {
		failure.RedirectTo = cfg.Auth.FailureRedirect
	}

	router := api.NewRouter(api.Dependencies{
		Auth: handler.AuthDeps{
			Auth:     authService,
			Users:    infra.Users,
			Sessions: sessions,
			Throttle: infra.Throttle,
			Recorder: dispatcher,
			Jar:      jar,
			Failure:  failure,
			Logger:   log,
		},
		OAuth: handler.OAuthDeps{
			Providers:       oauth.NewRegistry(providers...),
			State:           state,
			Bridge:          bridge,
			Sessions:        sessions,
			Recorder:        dispatcher,
			Jar:             jar,
			StateTTL:        oauth.StateTTL,
			SuccessRedirect: cfg.Auth.SuccessRedirect,
			FailureRedirect: cfg.Auth.OAuthFailureRedirect,
			Logger:          logger.Component(log, "oauth"),
		},
		Readiness: map[string]handler.DependencyCheck{
			"mongodb": handler.MongoCheck(infra.DB),
			"redis":   handler.RedisCheck(infra.Redis),
		},
		Logger:         log,
		LoginPagePath:  cfg.Auth.LoginPagePath,
		MetricsEnabled: cfg.MetricsEnabled,
		SwaggerEnabled: cfg.SwaggerEnabled,
	})

	return &App{
		cfg:        cfg,
		log:        log,
		infra:      infra,
		dispatcher: dispatcher,
		stopQueue:  stopQueue,
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

func setupProviders(ctx context.Context, cfg *config.Config, log zerolog.Logger) ([]ports.OAuthProvider, error) {
	var providers []ports.OAuthProvider

	if cfg.Google.Enabled() {
		google, err := oauth.NewGoogle(ctx, oauth.GoogleConfig{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURL,
		})
		if err != nil {
			return nil, err
		}
		providers = append(providers, google)
	}

	if cfg.Facebook.Enabled() {
		fb, err := oauth.NewFacebook(oauth.FacebookConfig{
			ClientID:     cfg.Facebook.ClientID,
			ClientSecret: cfg.Facebook.ClientSecret,
			RedirectURL:  cfg.Facebook.RedirectURL,
		})
		if err != nil {
			return nil, err
		}
		providers = append(providers, fb)
	}

	for _, p := range providers {
		log.Info().Str("provider", string(p.Name())).Msg("oauth provider enabled")
	}
	return providers, nil
}

// stateSecret falls back to a per-process secret when no provider needs a
// stable one; config validation rejects that combination otherwise.
func stateSecret(cfg *config.Config, log zerolog.Logger) string {
	if cfg.Auth.StateSecret != "" {
		return cfg.Auth.StateSecret
	}
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	log.Warn().Msg("OAUTH_STATE_SECRET not set, using a random per-process secret")
	return hex.EncodeToString(buf)
}

// Run serves HTTP until Shutdown is called.
func (a *App) Run() error {
	a.log.Info().Str("addr", a.httpServer.Addr).Msg("http server listening")
	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, flushes queued login events and
// closes the store connections.
func (a *App) Shutdown(ctx context.Context) error {
	if err := a.httpServer.Shutdown(ctx); err != nil {
		return err
	}

	a.stopQueue()
	a.dispatcher.Wait()

	return a.infra.Close(ctx)
}
