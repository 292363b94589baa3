package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/goliatone/go-communities/adapters/gologger"
	"github.com/goliatone/go-communities/adapters/notify"
	"github.com/goliatone/go-communities/adapters/prometheus"
	"github.com/goliatone/go-communities/core"
	"github.com/goliatone/go-communities/inbound"
	sqlstore "github.com/goliatone/go-communities/store/sql"
	"github.com/goliatone/go-communities/webhooks"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/spf13/cobra"
)

type serveFlags struct {
	migrate bool
	address string
}

func newServeCommand(root *rootFlags) *cobra.Command {
	flags := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the webhook endpoint and the community read API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig(ctx, os.LookupEnv)
			if err != nil {
				return err
			}
			if strings.TrimSpace(flags.address) != "" {
				cfg.HTTP.Address = strings.TrimSpace(flags.address)
			}
			provider, err := newLoggerProvider(cmd.ErrOrStderr(), root)
			if err != nil {
				return err
			}
			app, err := buildApp(ctx, cfg, provider, flags.migrate || cfg.Persistence.AutoMigrate)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&flags.migrate, "migrate", false, "apply embedded migrations before serving")
	cmd.Flags().StringVar(&flags.address, "addr", "", "listen address, overrides COMMUNITIES_HTTP_ADDRESS")
	return cmd
}

// app owns everything serve opens so Close can release it in reverse order.
type app struct {
	cfg       core.Config
	logger    core.Logger
	server    *http.Server
	client    *persistence.Client
	publisher *notify.AMQPPublisher
}

func buildApp(ctx context.Context, cfg core.Config, provider *gologger.LogrusProvider, migrate bool) (*app, error) {
	if strings.TrimSpace(cfg.Webhook.SigningSecret) == "" {
		return nil, fmt.Errorf("webhook signing secret is not configured; set COMMUNITIES_WEBHOOK_SIGNING_SECRET")
	}
	logger := provider.GetLogger("serve")

	client, err := openPersistence(ctx, cfg.Persistence, migrate)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, client: client}

	var factoryOpts []sqlstore.FactoryOption
	if cfg.Cache.Enabled {
		cacheConfig := repositorycache.DefaultConfig()
		cacheConfig.TTL = cfg.Cache.TTL
		cacheService, cacheErr := repositorycache.NewCacheService(cacheConfig)
		if cacheErr != nil {
			a.Close()
			return nil, fmt.Errorf("cache service: %w", cacheErr)
		}
		factoryOpts = append(factoryOpts, sqlstore.WithCacheService(cacheService))
	}
	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client, factoryOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	var store core.CommunityStore = factory.CommunityStore()
	reader := factory.CommunityReader()
	if cfg.Notify.Enabled {
		publisher, dialErr := notify.DialAMQP(cfg.Notify.AMQPURL, cfg.Notify.Exchange, notify.WithAppID(cfg.ServiceName))
		if dialErr != nil {
			a.Close()
			return nil, dialErr
		}
		a.publisher = publisher
		notifying, notifyErr := notify.NewNotifyingStore(store, publisher, notify.WithLogger(provider.GetLogger("notify")))
		if notifyErr != nil {
			a.Close()
			return nil, notifyErr
		}
		store = notifying
	}

	recorder := prometheus.NewRecorder()
	service, err := core.NewService(cfg,
		core.WithLoggerProvider(provider),
		core.WithMetricsRecorder(recorder),
		core.WithCommunityStore(store),
		core.WithCommunityReader(reader),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	dispatcher := webhooks.NewDispatcherFromTemplate(
		webhooks.NewClerkWebhookTemplate(cfg.Webhook.SigningSecret),
		service,
		webhooks.WithDispatcherLogger(provider.GetLogger("webhooks")),
		webhooks.WithDispatcherMetrics(recorder),
		webhooks.WithDefaultBio(cfg.Community.DefaultBio),
	)
	router := inbound.NewRouter(inbound.RouterConfig{
		WebhookPath: cfg.Webhook.Path,
		Webhook: inbound.NewWebhookHandler(
			dispatcher.ProviderID,
			dispatcher,
			cfg.Webhook.MaxBodyBytes,
			provider.GetLogger("inbound"),
		),
		Reader:  service,
		Metrics: recorder.Handler(),
		Logger:  provider.GetLogger("api"),
	})

	a.server = &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	return a, nil
}

// Run serves until ctx is cancelled, then drains in-flight requests within
// the shutdown timeout.
func (a *app) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "address", a.server.Addr, "webhook_path", a.cfg.Webhook.Path)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	a.logger.Info("http server shutting down")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func (a *app) Handler() http.Handler {
	if a == nil || a.server == nil {
		return nil
	}
	return a.server.Handler
}

func (a *app) Close() {
	if a == nil {
		return
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("amqp publisher close failed", "error", err.Error())
		}
	}
	if a.client != nil {
		if err := a.client.Close(); err != nil {
			a.logger.Warn("persistence close failed", "error", err.Error())
		}
	}
}
