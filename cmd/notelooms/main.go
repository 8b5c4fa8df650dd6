// Package main provides the NoteLooms CLI for ingesting documents into the
// vector store and querying them.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/VishaliniSaravanan/NoteLooms/internal/config"
	"github.com/VishaliniSaravanan/NoteLooms/internal/document"
	"github.com/VishaliniSaravanan/NoteLooms/internal/embedding"
	"github.com/VishaliniSaravanan/NoteLooms/internal/fsutil"
	"github.com/VishaliniSaravanan/NoteLooms/internal/indexer"
	"github.com/VishaliniSaravanan/NoteLooms/internal/splitter"
	"github.com/VishaliniSaravanan/NoteLooms/internal/storage"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "notelooms",
		Short: "NoteLooms document ingestion and retrieval tool",
		Long: `Ingests documents (PDF, DOCX, Markdown, text) into per-document vector
collections and retrieves the most relevant chunks for a question.

Environment variables:
  OPENAI_API_KEY OpenAI API key (required for the openai embedder)`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")
	rootCmd.AddCommand(newIngestCmd(), newQueryCmd(), newDeleteCmd(), newStatsCmd())
}

func main() {
	// Load .env if present (local development), ignore if missing.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// components builds the embedder and store from config. The same embedder
// configuration serves ingestion and querying so both live in one embedding
// space.
func components(cfg *config.Config) (embedding.Embedder, storage.Store, error) {
	var embedder embedding.Embedder
	switch cfg.Embedder.Type {
	case "openai":
		e, err := embedding.NewOpenAIEmbedder(embedding.Config{
			Model:     cfg.Embedder.Model,
			BatchSize: cfg.Embedder.BatchSize,
			Normalize: cfg.Embedder.Normalize,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("creating openai embedder: %w", err)
		}
		embedder = e
	case "hash", "":
		embedder = embedding.NewHashEmbedder(cfg.Embedder.Dimension)
	default:
		return nil, nil, fmt.Errorf("unknown embedder type %q", cfg.Embedder.Type)
	}

	var store storage.Store
	switch cfg.Store.Type {
	case "qdrant":
		s, err := storage.NewQdrantStore(cfg.Store.Qdrant.Host, cfg.Store.Qdrant.Port)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to qdrant: %w", err)
		}
		store = s
	case "sqlite", "":
		s, err := storage.NewSQLiteStore(cfg.Store.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		store = s
	default:
		return nil, nil, fmt.Errorf("unknown store type %q", cfg.Store.Type)
	}

	return embedder, store, nil
}

func newIngestCmd() *cobra.Command {
	var (
		bookID       string
		filename     string
		maxPages     int
		removeSource bool
	)

	cmd := &cobra.Command{
		Use:   "ingest <path>",
		Short: "Ingest a document into its vector collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if maxPages <= 0 {
				maxPages = cfg.MaxPages
			}
			if bookID == "" {
				bookID = bookIDFromPath(path)
			}

			embedder, store, err := components(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			logger := slog.Default()
			split := splitter.New(cfg.Chunker.ChunkSize, cfg.Chunker.Overlap)
			pipeline := indexer.NewPipeline(document.ForPath, split, embedder, store, logger)

			metadata := map[string]string{}
			if filename != "" {
				metadata["filename"] = filename
			}

			count, err := pipeline.ProcessDocument(cmd.Context(), path, bookID, metadata, maxPages)
			if err != nil {
				return fmt.Errorf("ingestion failed: %w", err)
			}

			fmt.Printf("Ingested %q as book %q: %d chunks\n", path, bookID, count)

			if removeSource {
				if err := fsutil.RemoveFile(path); err != nil {
					logger.Warn("failed to remove source file", "path", path, "error", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&bookID, "book-id", "", "collection name (default: derived from filename)")
	cmd.Flags().StringVar(&filename, "filename", "", "original filename to record as chunk source")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "page cap for paginated documents (default: from config)")
	cmd.Flags().BoolVar(&removeSource, "remove-source", false, "delete the source file after successful ingestion")
	return cmd
}

func newQueryCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "query <book-id> <question...>",
		Short: "Retrieve the chunks most relevant to a question",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID := args[0]
			question := strings.Join(args[1:], " ")

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			embedder, store, err := components(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			retriever := indexer.NewRetriever(embedder, store, slog.Default())
			resp := retriever.QueryBook(cmd.Context(), bookID, question, topK)
			if resp.Error != "" {
				fmt.Printf("No results: %s\n", resp.Error)
				return nil
			}

			for i, res := range resp.Results {
				fmt.Printf("%d. [score %.4f] %s (page %s)\n   %s\n",
					i+1, res.Score, res.Source, res.Page, res.Content)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&topK, "top-k", indexer.DefaultTopK, "maximum number of results")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <book-id>",
		Short: "Delete a book's vector collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			embedder, store, err := components(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			retriever := indexer.NewRetriever(embedder, store, slog.Default())
			if retriever.DeleteBook(cmd.Context(), args[0]) {
				fmt.Printf("Deleted book %q\n", args[0])
			} else {
				fmt.Printf("Failed to delete book %q\n", args[0])
			}
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <book-id>",
		Short: "Show chunk count and status for a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			embedder, store, err := components(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			retriever := indexer.NewRetriever(embedder, store, slog.Default())
			stats := retriever.GetStats(cmd.Context(), args[0])
			fmt.Printf("Book:   %s\nChunks: %d\nStatus: %s\n", stats.BookID, stats.ChunkCount, stats.Status)
			if stats.Error != "" {
				fmt.Printf("Error:  %s\n", stats.Error)
			}
			return nil
		},
	}
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// bookIDFromPath derives a collection-name-safe book id from a filename.
func bookIDFromPath(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	id := unsafeChars.ReplaceAllString(name, "_")
	id = strings.Trim(id, "_")
	if len(id) > 50 {
		id = id[:50]
	}
	if id == "" {
		id = "book"
	}
	return id
}
