package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eduloop/eduloop/internal/profile"
	"github.com/eduloop/eduloop/plugin/ai"
	"github.com/eduloop/eduloop/plugin/ai/agent"
	"github.com/eduloop/eduloop/plugin/ai/cache"
	"github.com/eduloop/eduloop/plugin/ai/rag"
	"github.com/eduloop/eduloop/plugin/ai/session"
	"github.com/eduloop/eduloop/server"
	apiv1 "github.com/eduloop/eduloop/server/router/api/v1"
	"github.com/eduloop/eduloop/store"
	"github.com/eduloop/eduloop/store/db"
)

const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "eduloop",
	Short: "Closed-loop mastery learning server",
	Long: `eduloop runs a teach-assess-analyze-feedback loop for exam preparation.
It serves a JSON HTTP API for learning sessions, retrieval over the
knowledge corpus, and optional speech and video synthesis.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		return run()
	},
}

func init() {
	rootCmd.PersistentFlags().String("mode", "demo", `mode of server, can be "demo", "dev" or "prod"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8081, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver (sqlite or postgres)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name")

	for _, flag := range []string{"mode", "addr", "port", "data", "driver", "dsn"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
	viper.SetEnvPrefix("eduloop")
	viper.AutomaticEnv()
}

func run() error {
	instanceProfile := &profile.Profile{
		Mode:    viper.GetString("mode"),
		Addr:    viper.GetString("addr"),
		Port:    viper.GetInt("port"),
		Data:    viper.GetString("data"),
		Driver:  viper.GetString("driver"),
		DSN:     viper.GetString("dsn"),
		Version: version,
	}
	instanceProfile.FromEnv()
	if err := instanceProfile.Validate(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbDriver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return fmt.Errorf("failed to create db driver: %w", err)
	}
	storeInstance := store.New(dbDriver, instanceProfile)
	if err := storeInstance.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	aiConfig := ai.NewConfigFromProfile(instanceProfile)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI config: %w", err)
	}
	if !aiConfig.Enabled {
		return fmt.Errorf("AI is not enabled, set EDULOOP_AI_API_KEY")
	}

	llmService, err := ai.NewLLMService(&aiConfig.LLM)
	if err != nil {
		return fmt.Errorf("failed to create LLM service: %w", err)
	}

	// The embedding path is optional. Without it retrieval degrades to
	// keyword-only search.
	var embedder rag.Embedder
	if embeddingService, err := ai.NewEmbeddingService(&aiConfig.LLM, ""); err != nil {
		slog.Warn("embedding service unavailable, retrieval is keyword-only", "error", err)
	} else {
		embedder = embeddingService
	}

	mediaClient, err := ai.NewMediaClient(&aiConfig.Speech, &aiConfig.Video)
	if err != nil {
		return fmt.Errorf("failed to create media client: %w", err)
	}

	retriever := rag.NewRetriever(storeInstance, embedder)
	cacheService := cache.NewLRU(512, 0)
	client := agent.NewClient(llmService)
	metrics := agent.NewMetrics()
	persistence := session.NewStoreService(storeInstance)

	orchestrator, err := agent.NewOrchestrator(agent.OrchestratorOptions{
		Teaching:         agent.NewTeachingSession(client, retriever, cacheService, instanceProfile.RetrievalTopN),
		Assessment:       agent.NewAssessmentSession(client, retriever, cacheService),
		Router:           agent.NewChatRouter(llmService),
		Client:           client,
		Persistence:      persistence,
		Metrics:          metrics,
		MasteryThreshold: instanceProfile.MasteryThreshold,
	})
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	speechAgent := agent.NewSpeechAgent(client, mediaClient, metrics)
	videoAgent := agent.NewVideoAgent(mediaClient, metrics)
	apiService := apiv1.NewAPIV1Service(instanceProfile, orchestrator, speechAgent, videoAgent)
	cleanupJob := session.NewCleanupJob(persistence, instanceProfile.SessionRetention)

	s, err := server.NewServer(ctx, instanceProfile, storeInstance, apiService, cleanupJob)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		slog.Info("received signal, shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			slog.Error("server failed", "error", err)
		}
	}
	cancel()
	s.Shutdown(context.Background())
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
