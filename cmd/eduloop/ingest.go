package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lithammer/shortuuid/v4"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eduloop/eduloop/internal/profile"
	"github.com/eduloop/eduloop/plugin/ai"
	"github.com/eduloop/eduloop/plugin/ai/rag"
	"github.com/eduloop/eduloop/store"
	"github.com/eduloop/eduloop/store/db"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <dir>",
	Short: "Ingest curriculum material into the knowledge corpus",
	Long: `ingest walks a directory of .md and .txt files, splits each file into
chunks, and stores them for retrieval. With an API key configured and the
postgres driver, chunks are embedded for vector search as well.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		docType, _ := cmd.Flags().GetString("doc-type")
		topics, _ := cmd.Flags().GetStringSlice("topics")
		return runIngest(args[0], store.ChunkDocType(docType), topics)
	},
}

func init() {
	ingestCmd.Flags().String("doc-type", string(store.ChunkDocTypeCurriculum),
		"document type: curriculum, paper, or marking_scheme")
	ingestCmd.Flags().StringSlice("topics", nil, "topic tags applied to every chunk")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(dir string, docType store.ChunkDocType, topics []string) error {
	switch docType {
	case store.ChunkDocTypeCurriculum, store.ChunkDocTypePaper, store.ChunkDocTypeMarkingScheme:
	default:
		return fmt.Errorf("unknown doc type %q", docType)
	}

	instanceProfile := &profile.Profile{
		Mode:   viper.GetString("mode"),
		Data:   viper.GetString("data"),
		Driver: viper.GetString("driver"),
		DSN:    viper.GetString("dsn"),
	}
	instanceProfile.FromEnv()
	if err := instanceProfile.Validate(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}

	ctx := context.Background()
	dbDriver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return fmt.Errorf("failed to create db driver: %w", err)
	}
	storeInstance := store.New(dbDriver, instanceProfile)
	defer storeInstance.Close()
	if err := storeInstance.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	var embedder ai.EmbeddingService
	if instanceProfile.IsAIEnabled() && instanceProfile.Driver == "postgres" {
		aiConfig := ai.NewConfigFromProfile(instanceProfile)
		if embedder, err = ai.NewEmbeddingService(&aiConfig.LLM, ""); err != nil {
			slog.Warn("embedding service unavailable, ingesting without vectors", "error", err)
			embedder = nil
		}
	}

	topicTags := rag.NormalizeTopics(topics)
	files, chunksTotal, embedded := 0, 0, 0

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".md" && ext != ".txt" {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		source := filepath.Base(path)

		for _, text := range rag.SplitDocument(string(content)) {
			chunk, err := storeInstance.CreateChunk(ctx, &store.Chunk{
				UID:     shortuuid.New(),
				DocType: docType,
				Source:  source,
				Text:    text,
				Topics:  topicTags,
			})
			if err != nil {
				return fmt.Errorf("failed to store chunk from %s: %w", source, err)
			}
			chunksTotal++

			if embedder == nil {
				continue
			}
			embedding, err := embedder.Embed(ctx, text)
			if err != nil {
				slog.Warn("failed to embed chunk", "source", source, "error", err)
				continue
			}
			if err := storeInstance.UpdateChunkEmbedding(ctx, chunk.ID, embedding); err != nil {
				slog.Warn("failed to store embedding", "source", source, "error", err)
				continue
			}
			embedded++
		}
		files++
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("ingest finished", "files", files, "chunks", chunksTotal, "embedded", embedded)
	return nil
}
