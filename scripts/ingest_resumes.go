package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alfredoptarigan/talent-graph/internal/config"
	"alfredoptarigan/talent-graph/internal/logger"
	"alfredoptarigan/talent-graph/internal/repositories"
	"alfredoptarigan/talent-graph/internal/services"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		dir       string
		failFast  bool
		recursive bool
	)

	cmd := &cobra.Command{
		Use:          "ingest-resumes",
		Short:        "Ingest a directory of résumé files into the graph and vector stores",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ingestDir(cmd.Context(), dir, recursive, failFast)
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "./resumes", "directory containing .pdf, .txt or .md résumés")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "walk subdirectories")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "stop at the first failed file")

	return cmd
}

func ingestDir(ctx context.Context, dir string, recursive, failFast bool) error {
	cfg := config.Load()
	zl, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()

	files, err := collectResumes(dir, recursive)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		zl.Warn("no résumé files found", zap.String("dir", dir))
		return nil
	}

	db, err := config.InitDatabase(cfg, zl)
	if err != nil {
		return err
	}

	gemini, err := services.NewGeminiService(ctx, cfg, zl)
	if err != nil {
		return fmt.Errorf("failed to initialize gemini: %w", err)
	}

	vectors, err := services.NewQdrantService(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, cfg.Qdrant.VectorSize, zl)
	if err != nil {
		return fmt.Errorf("failed to initialize qdrant: %w", err)
	}
	if err := vectors.InitCollection(ctx); err != nil {
		return fmt.Errorf("failed to initialize qdrant collection: %w", err)
	}

	ingestion := services.NewIngestionService(
		repositories.NewGraphRepository(db),
		repositories.NewJobDescriptionRepository(db),
		repositories.NewIngestionJobRepository(db),
		gemini,
		gemini,
		vectors,
		services.NewDocumentLoader(),
		cfg.Timeouts,
		zl,
	)

	var failed []string
	for i, path := range files {
		talentID := uuid.New().String()
		log := zl.With(zap.String("file", path), logger.Candidate(talentID), zap.Int("n", i+1), zap.Int("of", len(files)))

		result, err := ingestion.IngestResumeFile(ctx, talentID, path, filepath.Base(path))
		if err != nil {
			log.Error("ingestion failed", zap.Error(err))
			failed = append(failed, path)
			if failFast {
				break
			}
			continue
		}

		log.Info("ingested",
			zap.String("full_name", result.FullName),
			zap.Int("written", result.Report.Written),
			zap.Int("skipped", len(result.Report.Skipped)),
		)
	}

	zl.Info("ingestion summary", zap.Int("total", len(files)), zap.Int("failed", len(failed)))
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d files failed: %s", len(failed), len(files), strings.Join(failed, ", "))
	}
	return nil
}

func collectResumes(dir string, recursive bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if services.SupportedExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	sort.Strings(files)
	return files, nil
}
