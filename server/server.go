package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ArtistHub/cache"
	"ArtistHub/config"
	"ArtistHub/core/auth"
	"ArtistHub/core/pipeline"
	"ArtistHub/core/release"
	"ArtistHub/db"
	"ArtistHub/logger"
	"ArtistHub/repository"
	"ArtistHub/storage"

	"github.com/gorilla/mux"
)

// Start wires the stores, starts the pipeline intake and serves HTTP until
// SIGINT or SIGTERM.
func Start(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.InsecureJWTSecret() {
		logger.Warn("JWT_SECRET is unset or still the development default; set it before exposing the server")
	}

	gormDB, err := db.ConnectGormDB(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.CloseGormDB(gormDB)

	if err := db.AutoMigrate(gormDB); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	minioClient, err := storage.InitMinio(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize MinIO: %w", err)
	}
	artworkStore := storage.NewArtworkStore(minioClient, cfg.MinioBucket)

	userRepo := repository.NewGormUserRepository(gormDB)
	releaseRepo := repository.NewGormReleaseRepository(gormDB)

	// Redis 不可用时降级：资料直接查库，事件不推送
	redisClient, err := db.ConnectRedis(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, running without cache and events", logger.ErrorField(err))
	} else {
		defer redisClient.Close()
		logger.Info("Successfully connected to Redis")
	}
	profiles := cache.NewProfileCache(redisClient, userRepo, cfg.ProfileTTL)

	opts := release.Options{
		Releases:           releaseRepo,
		Artwork:            artworkStore,
		Profiles:           profiles,
		PlaceholderArtwork: cfg.PlaceholderArtwork,
		TakedownWindow:     cfg.TakedownWindow,
		MaxArtworkBytes:    cfg.MaxArtworkBytes,
	}
	deps := Deps{
		Users:    userRepo,
		Profiles: profiles,
		Tokens:   auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL),
		Artwork:  artworkStore,
		Config:   cfg,
	}
	if redisClient != nil {
		bus := cache.NewEventBus(redisClient)
		opts.Events = bus
		deps.Events = bus
	}
	deps.Releases = release.NewService(opts)

	intake := pipeline.NewIntake(cfg.PipelineInboxDir, cfg.PipelineRescan, deps.Releases)
	go func() {
		if err := intake.Run(ctx); err != nil {
			logger.Error("Pipeline intake stopped", logger.ErrorField(err))
		}
	}()

	// 设置服务器超时
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      NewRouter(NewAPIHandler(deps)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		// 关闭信号同样结束已升级的 websocket 连接
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", logger.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	// 等待中断信号
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 优雅关闭服务器
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

// NewRouter registers every route on a gorilla/mux router.
func NewRouter(h *APIHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(corsMiddleware)

	// 预检请求单独匹配，否则按方法限定的路由会直接返回 405
	router.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	router.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// 用户认证相关的API端点，按客户端IP限流
	limiter := newIPRateLimiter(h.cfg.AuthRatePerMinute, h.cfg.AuthRateBurst)
	router.HandleFunc("/api/auth/register", limiter.Middleware(h.RegisterHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", limiter.Middleware(h.LoginHandler)).Methods(http.MethodPost)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(h.IdentityMiddleware)

	// 发行相关的API端点
	api.HandleFunc("/releases", h.ListReleasesHandler).Methods(http.MethodGet)
	api.HandleFunc("/releases/upload", h.UploadReleaseHandler).Methods(http.MethodPost)
	api.HandleFunc("/releases/existing", h.CreateExistingReleaseHandler).Methods(http.MethodPost)
	api.HandleFunc("/releases/{id}", h.GetReleaseHandler).Methods(http.MethodGet)
	api.HandleFunc("/releases/{id}", h.UpdateReleaseHandler).Methods(http.MethodPut)
	api.HandleFunc("/releases/{id}", h.DeleteReleaseHandler).Methods(http.MethodDelete)
	api.HandleFunc("/releases/{id}/takedown", h.RequestTakedownHandler).Methods(http.MethodPost)
	api.HandleFunc("/releases/{id}/takedown", h.CancelTakedownHandler).Methods(http.MethodDelete)

	// 用户资料
	api.HandleFunc("/profile", h.GetProfileHandler).Methods(http.MethodGet)
	api.HandleFunc("/profile", h.UpdateProfileHandler).Methods(http.MethodPut)

	ws := router.PathPrefix("/ws").Subrouter()
	ws.Use(h.IdentityMiddleware)
	ws.HandleFunc("/releases", h.ReleaseEventsHandler).Methods(http.MethodGet)

	// MinIO 静态文件服务（封面图）
	router.PathPrefix(storage.ServePrefix).Handler(NewStaticHandler(h.artwork)).Methods(http.MethodGet, http.MethodHead)

	return router
}

// corsMiddleware 添加 CORS 头
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
