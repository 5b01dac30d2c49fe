package application

import (
	"context"
	"fmt"
	"time"

	"github.com/autoci/autoci/internal/domain"
	"github.com/autoci/autoci/internal/domain/detection"
	"github.com/autoci/autoci/internal/platform/logger"
)

// ReaderFactory builds a content reader capped at maxSize bytes.
type ReaderFactory func(maxSize int64) domain.ContentReader

// ScanService orchestrates detection:
// load config → walk the tree → match signatures → fuse evidence.
type ScanService struct {
	scanner      domain.ProjectScanner
	newReader    ReaderFactory
	configLoader domain.ConfigLoader
	table        *detection.Table
}

func NewScanService(
	scanner domain.ProjectScanner,
	newReader ReaderFactory,
	configLoader domain.ConfigLoader,
	table *detection.Table,
) *ScanService {
	return &ScanService{
		scanner:      scanner,
		newReader:    newReader,
		configLoader: configLoader,
		table:        table,
	}
}

// Scan analyzes the repository at projectPath.
func (s *ScanService) Scan(ctx context.Context, projectPath string) (*domain.RepoAnalysis, error) {
	a, _, err := s.ScanWithConfig(ctx, projectPath)
	return a, err
}

// ScanWithConfig analyzes the repository and also returns the project
// config it was scanned with.
func (s *ScanService) ScanWithConfig(ctx context.Context, projectPath string) (*domain.RepoAnalysis, domain.ProjectConfig, error) {
	cfg, err := s.configLoader.Load(projectPath)
	if err != nil {
		return nil, cfg, fmt.Errorf("loading config: %w", err)
	}
	a, err := s.analyze(ctx, projectPath, cfg)
	return a, cfg, err
}

// ScanDefaults analyzes the repository ignoring any project config.
func (s *ScanService) ScanDefaults(ctx context.Context, projectPath string) (*domain.RepoAnalysis, error) {
	return s.analyze(ctx, projectPath, domain.DefaultConfig())
}

func (s *ScanService) analyze(ctx context.Context, projectPath string, cfg domain.ProjectConfig) (*domain.RepoAnalysis, error) {
	if d := cfg.Timeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	start := time.Now()
	opts := cfg.ScanOptions()
	tree, err := s.scanner.Scan(ctx, projectPath, opts)
	if err != nil {
		return nil, fmt.Errorf("scanning project: %w", err)
	}

	engine := detection.NewEngine(s.table, s.newReader(opts.MaxFileSize), cfg.Workers)
	a, err := engine.Analyze(ctx, tree)
	if err != nil {
		return nil, fmt.Errorf("detecting technologies: %w", err)
	}

	logger.Named("scan").Debug().
		Str("root", a.RootPath).
		Int("files", len(tree.Files)).
		Str("primary", a.PrimaryLanguage).
		Dur("took", time.Since(start)).
		Msg("analysis complete")
	return a, nil
}
