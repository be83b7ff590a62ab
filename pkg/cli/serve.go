package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"site-cms/pkg/config"
	"site-cms/pkg/handlers"
	"site-cms/pkg/services"
	"site-cms/pkg/site"
)

const (
	shutdownTimeout    = 30 * time.Second
	mediaRefreshWindow = 500 * time.Millisecond
)

func newServeCommand() *cobra.Command {
	var (
		templates string
		static    string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the marketing site and the admin dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), templates, static)
		},
	}
	cmd.Flags().StringVar(&templates, "templates", "templates/*", "admin template glob")
	cmd.Flags().StringVar(&static, "static", "./static", "public asset directory")
	return cmd
}

func serve(ctx context.Context, templates, static string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	client, err := newClient(log, reg)
	if err != nil {
		return err
	}
	siteDef, err := site.Load(config.SiteConfigPath)
	if err != nil {
		return err
	}
	renderer, err := site.NewRenderer(services.NewMarkdown())
	if err != nil {
		return err
	}

	if !config.LogDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}
	server := handlers.NewServer(handlers.Deps{
		Client:        client,
		Site:          siteDef,
		Renderer:      renderer,
		Cache:         services.NewListCache(config.ListCacheTTL),
		Media:         services.NewLibraryPool(client, config.MaxUploadBytes(), mediaRefreshWindow, log),
		OAuth:         config.OauthConf,
		Logger:        log,
		Registry:      reg,
		UploadTimeout: config.UploadTimeout,
		TemplatesGlob: templates,
		StaticDir:     static,
	})
	store := cookie.NewStore([]byte(config.SessionSecret))
	router := server.Router(config.SessionName, store)

	httpServer := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening",
			zap.String("addr", httpServer.Addr),
			zap.String("api", config.APIBaseURL),
			zap.Strings("pages", siteDef.Slugs()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	server.Close()
	return nil
}
