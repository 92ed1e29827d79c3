package infra

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/traingen/go-traingen/internal/repository"
	pkgLogger "github.com/traingen/go-traingen/pkg/logger"
)

const artifactTimestampFormat = "20060102_150405"

// FileArtifactWriter writes dataset artifacts to a local output directory.
// All files from one run share a single timestamp so they sort together.
type FileArtifactWriter struct {
	outputDir string
	prefix    string
	now       func() time.Time
	logger    *pkgLogger.Logger
}

// NewFileArtifactWriter creates a writer that places artifacts under
// outputDir using the given filename prefix
func NewFileArtifactWriter(outputDir, prefix string) *FileArtifactWriter {
	if prefix == "" {
		prefix = "training_dataset"
	}
	return &FileArtifactWriter{
		outputDir: outputDir,
		prefix:    prefix,
		now:       time.Now,
		logger:    pkgLogger.NewComponentLogger("artifacts"),
	}
}

var _ repository.ArtifactWriter = (*FileArtifactWriter)(nil)

// WriteDataset implements repository.ArtifactWriter. The raw scenarios file
// is only produced when raw is non-nil; the training JSONL and the manifest
// are always written.
func (w *FileArtifactWriter) WriteDataset(ctx context.Context, records []repository.TrainingRecord, raw []repository.AcceptedScenario, manifest repository.DatasetManifest) (repository.DatasetPaths, error) {
	if err := ctx.Err(); err != nil {
		return repository.DatasetPaths{}, err
	}

	if w.outputDir != "" {
		if err := os.MkdirAll(w.outputDir, 0755); err != nil {
			return repository.DatasetPaths{}, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	stamp := w.now().Format(artifactTimestampFormat)
	paths := repository.DatasetPaths{
		Training: filepath.Join(w.outputDir, fmt.Sprintf("%s_%s.jsonl", w.prefix, stamp)),
		Manifest: filepath.Join(w.outputDir, fmt.Sprintf("%s_manifest_%s.json", w.prefix, stamp)),
	}

	if err := w.writeTrainingFile(paths.Training, records); err != nil {
		return repository.DatasetPaths{}, err
	}

	if raw != nil {
		paths.Raw = filepath.Join(w.outputDir, fmt.Sprintf("%s_raw_scenarios_%s.json", w.prefix, stamp))
		if err := writeJSONFile(paths.Raw, raw); err != nil {
			return repository.DatasetPaths{}, err
		}
	}

	if err := writeJSONFile(paths.Manifest, manifest); err != nil {
		return repository.DatasetPaths{}, err
	}

	w.logger.Info("Wrote dataset artifacts",
		"training", paths.Training,
		"records", len(records),
		"raw_scenarios", len(raw))
	return paths, nil
}

// writeTrainingFile writes one JSON object per line in fine-tuning format
func (w *FileArtifactWriter) writeTrainingFile(path string, records []repository.TrainingRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create training file: %w", err)
	}
	defer file.Close()

	buf := bufio.NewWriter(file)
	enc := json.NewEncoder(buf)
	for i, record := range records {
		if err := enc.Encode(record); err != nil {
			return fmt.Errorf("failed to encode training record %d: %w", i, err)
		}
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush training file: %w", err)
	}
	return file.Close()
}

func writeJSONFile(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
