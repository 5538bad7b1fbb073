package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"messenger-be/internal/attachment"
	"messenger-be/internal/config"
	"messenger-be/internal/handler"
	"messenger-be/internal/logging"
	"messenger-be/internal/metrics"
	"messenger-be/internal/middleware"
	"messenger-be/internal/registry"
	"messenger-be/internal/session"
	"messenger-be/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to optional config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	s, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer s.Close()

	files, err := attachment.NewDir(cfg.AttachmentDir)
	if err != nil {
		logger.Fatal("attachment dir", zap.Error(err))
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	reg := registry.New(m)

	deps := session.Deps{
		Registry:   reg,
		Store:      s,
		Files:      files,
		Logger:     logger,
		Metrics:    m,
		PageSize:   cfg.PageSize,
		SendBuffer: cfg.SendBuffer,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handler.Health())
	mux.HandleFunc("POST /api/chats", handler.CreateChat(s, logger))
	mux.HandleFunc("GET /api/chats", handler.ListChats(s, logger))
	mux.HandleFunc("GET /api/chats/{id}", handler.ChatInfo(s, reg))
	mux.HandleFunc("GET /ws/chat/{id}", handler.ServeWS(deps, logger))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /static/chat_pic/", http.StripPrefix("/static/chat_pic/", http.FileServer(http.Dir(cfg.AttachmentDir))))

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: middleware.Logging(logger, middleware.CORS(mux)),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("messenger listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
}
