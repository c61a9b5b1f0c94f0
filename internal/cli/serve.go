package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/crestbank/teller/internal/api/handlers"
	"github.com/crestbank/teller/internal/config"
	"github.com/crestbank/teller/internal/database"
	"github.com/crestbank/teller/internal/domain"
	"github.com/crestbank/teller/internal/openai"
	"github.com/crestbank/teller/internal/repository"
	"github.com/crestbank/teller/internal/server"
	"github.com/crestbank/teller/internal/service"
	"github.com/crestbank/teller/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat API server",
		Long:  "Start the teller chat API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	chunkRepo := repository.NewChunkRepository(pool)
	convRepo := repository.NewConversationRepository(pool)

	// An unbuilt index is not fatal at startup: the server comes up and
	// /chat reports the condition until an index build runs.
	if meta, err := chunkRepo.GetIndexMeta(ctx); err != nil {
		if errors.Is(err, domain.ErrIndexNotBuilt) {
			log.Println("warning: vector index has not been built; run 'tellerd index' before serving traffic")
		} else {
			return fmt.Errorf("failed to read index metadata: %w", err)
		}
	} else {
		log.Printf("index ready: %d chunks, model %s, built %s", meta.ChunkCount, meta.EmbeddingModel, meta.BuiltAt.Format(time.RFC3339))
	}

	// Embedding and generation are credentialed separately. Without an
	// embedding key /chat cannot retrieve and reports a configuration
	// error; without only a generation key retrieval still works and
	// answers degrade to a fixed notice.
	var embeddingClient service.EmbeddingClient
	if key := cfg.EmbeddingKey(); key != "" {
		embeddingClient = openai.NewClientWithConfig(openai.Config{
			APIKey:              key,
			EmbeddingModel:      cfg.EmbeddingModel,
			EmbeddingDimensions: cfg.EmbeddingDimensions,
		})
	} else {
		log.Println("warning: no embedding credential configured; /chat will fail until TELLER_OPENAI_API_KEY or TELLER_EMBEDDING_API_KEY is set")
	}

	var completer service.Completer
	if key := cfg.GenerationKey(); key != "" {
		completer = openai.NewCompletionClient(key, cfg.GenerationModel)
	} else {
		log.Println("warning: no generation credential configured; chat answers degrade to a fixed notice")
	}

	chatSvc := service.NewChatService(chunkRepo, convRepo, embeddingClient, completer)
	chatHandler := handlers.NewChatHandler(chatSvc)

	router := server.NewRouter(server.RouterConfig{
		ChatHandler: chatHandler,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get migration version and status
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
