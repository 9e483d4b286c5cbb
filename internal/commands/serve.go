package commands

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/themobileprof/ayu-be/internal/api"
	"github.com/themobileprof/ayu-be/internal/config"
	"github.com/themobileprof/ayu-be/internal/directory"
	"github.com/themobileprof/ayu-be/internal/language"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if port != "" {
				cfg.Port = port
			}
			return runServe(cfg)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides PORT)")
	return cmd
}

func runServe(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := buildApp(context.Background(), cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	dir, err := directory.Load(cfg.DirectoryFile)
	if err != nil {
		return err
	}

	log.Printf("✅ Pipeline ready (provider=%s, model=%s, timeout=%s, context=%d)",
		cfg.Provider, cfg.Model(), cfg.Timeout, cfg.ContextWindow)

	router := api.NewRouter(api.RouterConfig{
		Engine:          a.engine,
		Languages:       language.NewManager(),
		Book:            a.book,
		Directory:       dir,
		Proxy:           api.NewGeminiProxy(cfg.GeminiAPIKey, cfg.ProxyUpstreamURL, nil),
		SessionSecret:   cfg.SessionSecret,
		AllowedOrigin:   cfg.AllowedOrigin,
		RateLimit:       cfg.RateLimit,
		ContextCapacity: cfg.ContextWindow,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%s", cfg.Port)
		log.Printf("📝 API endpoints:")
		log.Printf("   GET    /health")
		log.Printf("   GET    /api/languages")
		log.Printf("   POST   /api/chat/sessions")
		log.Printf("   DELETE /api/chat/sessions")
		log.Printf("   POST   /api/chat/messages")
		log.Printf("   GET    /api/chat/messages")
		log.Printf("   POST   /api/chat/respond")
		log.Printf("   POST   /api/gemini")
		log.Printf("   GET    /api/providers")
		log.Printf("   GET    /api/providers/:id")
		log.Printf("   GET    /api/pharmacies")
		log.Printf("   GET    /api/pharmacies/:id")
		log.Printf("   GET    /api/pharmacies/:id/delivery-estimate")
		log.Printf("   WS     /ws/chat")
		log.Printf("")
		log.Printf("Press Ctrl+C to stop")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	log.Println("Server exited")
	return nil
}
