package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/trace"

	"github.com/bizmatters/agent-builder/arch-customizer/internal/auth"
	"github.com/bizmatters/agent-builder/arch-customizer/internal/config"
	"github.com/bizmatters/agent-builder/arch-customizer/internal/engine"
	"github.com/bizmatters/agent-builder/arch-customizer/internal/gateway"
	"github.com/bizmatters/agent-builder/arch-customizer/internal/metrics"
	"github.com/bizmatters/agent-builder/arch-customizer/internal/resolver"
	"github.com/bizmatters/agent-builder/arch-customizer/internal/session"
	"github.com/bizmatters/agent-builder/arch-customizer/internal/stream"
	"github.com/bizmatters/agent-builder/arch-customizer/internal/suggestion"

	_ "github.com/bizmatters/agent-builder/arch-customizer/docs" // swagger docs
)

// @title Architecture Customizer API
// @version 1.0
// @description Natural-language customization of application architecture documents
// @description
// @description Commands in English or Arabic are resolved into structured changes, applied per session with linear undo.
// @description Features include: single and batch commands, deep modification passes, suggestions and a live session event stream.

// @contact.name API Support
// @contact.email support@bizmatters.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT token.

// pinger reports whether a dependency is reachable
type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize OpenTelemetry
	tp, err := initTracer()
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}

	rootCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	// Operator accounts live in Postgres, so login is only offered with a database
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = connectDatabase(rootCtx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database after retries: %v", err)
		}
		defer pool.Close()
	}

	store, storePinger, closeStore, err := openStore(rootCtx, cfg, pool)
	if err != nil {
		log.Fatalf("Failed to open session store: %v", err)
	}
	defer closeStore()

	jwtManager, err := auth.NewJWTManager()
	if err != nil {
		log.Fatalf("Failed to initialize JWT manager: %v", err)
	}

	commandMetrics, err := metrics.NewCommandMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}

	intentResolver, err := resolver.New(cfg.Resolver)
	if err != nil {
		log.Fatalf("Failed to initialize intent resolver: %v", err)
	}

	documentCheck, err := engine.DocumentCheckByName(cfg.Engine.DocumentCheck)
	if err != nil {
		log.Fatalf("Invalid document check: %v", err)
	}

	hub := stream.NewHub(stream.DefaultBuffer)
	eng := engine.New(store, intentResolver,
		engine.WithResolveTimeout(cfg.Resolver.Timeout),
		engine.WithSuggestionGenerator(suggestion.NewGenerator(intentResolver, cfg.Resolver.SuggestionTimeout, commandMetrics)),
		engine.WithRecorder(commandMetrics),
		engine.WithPublisher(hub),
		engine.WithDocumentCheck(documentCheck),
	)

	janitor := session.NewJanitor(store, cfg.Store.SessionTTL, cfg.Store.JanitorInterval, commandMetrics)
	if janitor.Enabled() {
		go janitor.Run(rootCtx)
	}

	// Setup Gin router. Stream tokens travel in the query string and must not reach the access log.
	router := gin.New()
	router.Use(gateway.AccessLogger(gin.DefaultWriter), gin.Recovery())

	// Add structured JSON logging middleware
	router.Use(structuredLoggingMiddleware())

	// Health checks MUST be at the root for the WebService standard
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if storePinger != nil {
			if err := storePinger.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status": "not ready",
					"error":  "session store unavailable",
				})
				return
			}
		}
		if checker, ok := intentResolver.(interface{ IsHealthy(context.Context) bool }); ok && !checker.IsHealthy(ctx) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"error":  "intent resolver unavailable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// Swagger documentation (public)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	routes := gateway.Routes{
		Handler:    gateway.NewHandler(eng),
		Stream:     gateway.NewSessionStream(hub),
		JWTManager: jwtManager,
		Limiter:    gateway.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst),
		WriteRole:  cfg.HTTP.WriteRole,
	}
	if pool != nil {
		routes.Auth = gateway.NewAuthHandler(pool, jwtManager)
	}
	gateway.RegisterRoutes(api, routes)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf(`{"level":"info","message":"Starting Architecture Customizer API server","port":%q,"store":%q,"resolver":%q}`,
			cfg.Port, cfg.Store.Backend, cfg.Resolver.Backend)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// SIGHUP reloads the JWT signing key, SIGINT/SIGTERM shut down
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range signals {
		if sig != syscall.SIGHUP {
			break
		}
		if err := jwtManager.RotateSigningKey(rootCtx); err != nil {
			log.Printf(`{"level":"error","message":"Failed to rotate signing key","error":%q}`, err)
			continue
		}
		log.Println(`{"level":"info","message":"JWT signing key rotated"}`)
	}
	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown, end them through the hub
	hub.Close()
	stopBackground()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	if err := tp.Shutdown(ctx); err != nil {
		log.Printf("Failed to flush traces: %v", err)
	}

	log.Println("Server exited")
}

// connectDatabase opens a pgx pool, retrying while the database starts up
func connectDatabase(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	log.Println("Connecting to PostgreSQL database...")
	var pool *pgxpool.Pool
	var err error

	for i := 0; i < 10; i++ {
		pool, err = pgxpool.New(ctx, dbURL)
		if err == nil {
			err = pool.Ping(ctx)
			if err == nil {
				log.Println("Connected to PostgreSQL database")
				return pool, nil
			}
			pool.Close()
		}
		log.Printf("Waiting for database... (attempt %d/10): %v", i+1, err)
		time.Sleep(3 * time.Second)
	}
	return nil, err
}

// openStore builds the configured session store. The returned pinger backs /ready.
func openStore(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (session.Store, pinger, func(), error) {
	switch cfg.Store.Backend {
	case config.StorePostgres:
		if pool == nil {
			return nil, nil, nil, fmt.Errorf("postgres store requires DATABASE_URL")
		}
		store := session.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, nil, nil, err
		}
		return store, pool, func() {}, nil

	case config.StoreSQLite:
		store, err := session.NewSQLiteStore(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn := func() {
			if err := store.Close(); err != nil {
				log.Printf("Failed to close sqlite store: %v", err)
			}
		}
		return store, store, closeFn, nil

	default:
		return session.NewMemoryStore(), nil, func() {}, nil
	}
}

// initTracer initializes OpenTelemetry tracing
func initTracer() (*trace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(tp)

	return tp, nil
}

// structuredLoggingMiddleware provides structured JSON logging for all requests
func structuredLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logEntry := map[string]interface{}{
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
		}

		if userID := c.GetString(auth.UserIDKey); userID != "" {
			logEntry["user_id"] = userID
		}
		if sessionScope := c.GetHeader(gateway.SessionHeader); sessionScope != "" {
			logEntry["session_scope"] = sessionScope
		}
		if len(c.Errors) > 0 {
			logEntry["errors"] = c.Errors.String()
		}

		logJSON, _ := json.Marshal(logEntry)
		log.Println(string(logJSON))
	}
}
