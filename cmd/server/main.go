package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	_ "contentflow/docs" // swagger docs

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"contentflow/internal/auth"
	"contentflow/internal/cache"
	"contentflow/internal/config"
	"contentflow/internal/db"
	"contentflow/internal/handler"
	"contentflow/internal/policy"
	"contentflow/internal/repository"
	"contentflow/internal/router"
	"contentflow/internal/service"
)

// @title Content Approval API
// @version 1.0
// @description Content approval API with row-level access policy, review lifecycle, and JWT or OIDC authentication.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// run wires and serves the API. Errors are returned rather than fatal so
// deferred cleanup runs.
func run() error {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	e := echo.New()
	e.Use(middleware.RequestID())

	gormDB, err := db.Open(cfg)
	if err != nil {
		return fmt.Errorf("database init: %w", err)
	}

	if cfg.ResetDB {
		log.Println("RESET_DB=true detected, dropping all tables...")
		db.Reset(gormDB)
		log.Println("Tables dropped")
	}

	if err := db.Migrate(gormDB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()
	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := cacheClient.Ping(pingCtx); err != nil {
		log.Printf("Warning: redis unavailable, continuing without cache: %v", err)
	}
	cancel()

	// Initialize repositories
	profileRepo := repository.NewProfileRepository(gormDB)
	contentRepo := repository.NewContentRepository(gormDB)
	eventRepo := repository.NewContentEventRepository(gormDB)

	// Access policy
	engine := policy.NewEngine(profileRepo, cacheClient, cfg.AdminCacheTTL)

	// Initialize services
	profileService := service.NewProfileService(profileRepo, engine, cfg.BootstrapAdminEmail, logger)
	contentService := service.NewContentService(contentRepo, eventRepo, profileRepo, loc, logger)

	handlers := router.Handlers{
		Profile: handler.NewProfileHandler(profileService),
		Content: handler.NewContentHandler(contentService),
	}

	// Identity provider: an external OIDC issuer, or the bundled one.
	var authn auth.Authenticator
	if cfg.UsesOIDC() {
		initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		oidcAuth, err := auth.NewOIDCAuthenticator(initCtx, cfg.OIDCIssuerURL, cfg.OIDCAudience)
		cancel()
		if err != nil {
			return fmt.Errorf("oidc init: %w", err)
		}
		authn = oidcAuth
		log.Printf("Using OIDC issuer %s", cfg.OIDCIssuerURL)
	} else {
		jwtService := auth.NewJWTService(cfg.JWTSecret)
		tokenStore := auth.NewTokenStore(cacheClient)
		credentialRepo := repository.NewCredentialRepository(gormDB)
		authService := service.NewAuthService(credentialRepo, jwtService, tokenStore, profileService.Provision)
		handlers.Auth = handler.NewAuthHandler(authService)
		authn = jwtService
	}

	router.Register(e, cfg, authn, profileService, engine, handlers)

	log.Printf("Swagger documentation available at: %s", swaggerURL(cfg.SwaggerHost, cfg.ServerPort))

	addr := ":" + cfg.ServerPort
	if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server start: %w", err)
	}
	return nil
}

// swaggerURL builds the docs URL. host may already include a scheme.
func swaggerURL(host, port string) string {
	if host == "" {
		host = "localhost:" + port
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return strings.TrimSuffix(host, "/") + "/swagger/index.html"
}
