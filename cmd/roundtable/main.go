// Roundtable orchestrator server - runs live multi-agent meetings over a
// REST + WebSocket API.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/roundtable-run/roundtable/pkg/aiprovider"
	rtcontext "github.com/roundtable-run/roundtable/pkg/context"

	"github.com/roundtable-run/roundtable/pkg/api"
	"github.com/roundtable-run/roundtable/pkg/cleanup"
	"github.com/roundtable-run/roundtable/pkg/config"
	"github.com/roundtable-run/roundtable/pkg/credential"
	"github.com/roundtable-run/roundtable/pkg/database"
	"github.com/roundtable-run/roundtable/pkg/events"
	"github.com/roundtable-run/roundtable/pkg/masking"
	"github.com/roundtable-run/roundtable/pkg/orchestrator"
	"github.com/roundtable-run/roundtable/pkg/registry"
	"github.com/roundtable-run/roundtable/pkg/services"
	"github.com/roundtable-run/roundtable/pkg/slack"
	"github.com/roundtable-run/roundtable/pkg/wall"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: Could not load %s file: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	baseURL := getEnv("ROUNDTABLE_BASE_URL", "http://localhost:"+httpPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("Failed to initialize configuration: %v", err)
	}
	slog.Info("Configuration initialized", "sockets", cfg.Stats().Sockets)

	dbClient, err := connectDatabase(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			slog.Error("error closing database client", "error", err)
		}
	}()
	slog.Info("Connected to PostgreSQL and applied migrations")

	reg := registry.New()
	credentials := credential.New("rt")
	catchup := services.NewCatchupService(reg, dbClient.Messages)

	// Breaking the ConnectionManager <-> MeetingService construction cycle:
	// the dispatcher needs a *MeetingService handle before ConnectionManager
	// exists, and MeetingService needs the ConnectionManager as its
	// Broadcaster. See MeetingService.Configure.
	meetingSvc := services.NewMeetingService(services.MeetingServiceDeps{})
	dispatcher := services.NewDispatcher(meetingSvc)
	connections := events.NewConnectionManager(catchup, dispatcher, 5*time.Second)

	tokenMasker := masking.NewTokenMasker()
	wallSvc := wall.NewService(dbClient.WallPosts, tokenMasker)
	registrationSvc := services.NewRegistrationService(credentials, wallSvc, baseURL)
	socketLookup := services.NewSocketLookup(cfg.SocketRegistry)

	provider := buildAIProvider(cfg.Defaults.AIProvider)
	notifier := buildSlackNotifier(cfg.Slack)

	// No out-of-scope series/session collaborator is wired up yet, so the
	// Context Loader always returns an empty snapshot; meetings still work
	// standalone.
	contextLoader := rtcontext.NewLoader(nil, rtcontext.NewMemoryCache(10*time.Minute),
		cfg.Defaults.MemorySnippetChars, cfg.Defaults.RecentNotesLimit)

	meetingSvc.Configure(services.MeetingServiceDeps{
		Registry:     reg,
		Meetings:     dbClient.Meetings,
		Participants: dbClient.Participants,
		Credentials:  credentials,
		OrchestratorDeps: orchestrator.Deps{
			Provider:            provider,
			Broadcaster:         connections,
			Persistence:         dbClient,
			Interpreter:         orchestrator.NoopInterpreter{},
			Wall:                wallSvc,
			Sockets:             socketLookup,
			ContextLoad:         contextLoader,
			Notifier:            notifier,
			Masker:              tokenMasker,
			DefaultModel:        cfg.Defaults.DefaultModel,
			AutoInterpret:       cfg.Defaults.AutoInterpret,
			AutoPostSummaries:   cfg.Defaults.AutoPostSummaries,
			ExternalTurnTimeout: cfg.Defaults.ExternalTurnTimeout,
			StopGrace:           cfg.Defaults.StopGrace,
			MaxContextMessages:  cfg.Defaults.MaxContextMessages,
			IdlePassMultiplier:  cfg.Defaults.IdlePassMultiplier,
		},
		CooldownSecondsDefault: cfg.Defaults.CooldownSecondsDefault,
		MaxRoundsDefault:       cfg.Defaults.MaxRoundsDefault,
	})

	cleanupSvc := cleanup.NewService(cfg.Retention, dbClient.Meetings, connections)
	cleanupSvc.Start(ctx)
	defer cleanupSvc.Stop()

	server := api.NewServer(meetingSvc, registrationSvc, wallSvc, dbClient.WallPosts,
		credentials, connections, cfg.SocketRegistry, dbClient.DB(), cfg.Defaults.MaxContextMessages)

	slog.Info("Starting roundtable server", "port", httpPort, "config_dir", *configDir)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(":" + httpPort); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-errCh:
		log.Fatalf("HTTP server failed: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("error during server shutdown", "error", err)
	}
}

// connectDatabase builds a database.Config from the resolved system config
// and dials + migrates the pool. Pool lifetime knobs aren't part of
// roundtable.yaml's database section, so sensible defaults apply here the
// same way database.LoadConfigFromEnv's did for the env-var path.
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig) (*database.Client, error) {
	dbCfg := database.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: 1 * time.Hour,
		ConnMaxIdleTime: 15 * time.Minute,
	}
	return database.NewClient(ctx, dbCfg)
}

// buildAIProvider resolves the configured AI provider. Only the stub
// provider exists today; an unrecognized name falls back to it rather than
// failing startup, since meetings are still fully exercisable against it.
func buildAIProvider(name string) aiprovider.Provider {
	if name != "" && name != "stub" {
		slog.Warn("unknown ai_provider, falling back to stub", "configured", name)
	}
	return aiprovider.NewStub("[no response configured]")
}

// buildSlackNotifier wires the optional Slack finalize-notifier from its
// resolved config plus the bot token env var it names. Returns a nil
// *slack.Service (still safe to call through the Notifier interface) when
// disabled or unconfigured.
func buildSlackNotifier(cfg *config.SlackConfig) orchestrator.Notifier {
	if cfg == nil || !cfg.Enabled {
		return nilNotifier{}
	}
	svc := slack.NewService(slack.ServiceConfig{
		Token:   os.Getenv(cfg.TokenEnv),
		Channel: cfg.Channel,
	})
	if svc == nil {
		return nilNotifier{}
	}
	return svc
}

// nilNotifier is a Notifier that never calls out, for when Slack is
// disabled. orchestrator.Deps takes an interface, and a nil *slack.Service
// stored directly in that interface would be a non-nil interface wrapping
// a nil pointer (slack.Service.NotifyMeetingCompleted tolerates that, but
// this avoids relying on it from outside the slack package).
type nilNotifier struct{}

func (nilNotifier) NotifyMeetingCompleted(context.Context, string, string) error { return nil }
