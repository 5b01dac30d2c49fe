package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/autoci/autoci/internal/adapters/outbound/config"
	"github.com/autoci/autoci/internal/adapters/outbound/scanner"
	"github.com/autoci/autoci/internal/application"
	"github.com/autoci/autoci/internal/domain"
	"github.com/autoci/autoci/internal/domain/detection"
	"github.com/autoci/autoci/internal/domain/rules"
)

func newScanService() (*application.ScanService, error) {
	table, err := detection.DefaultTable()
	if err != nil {
		return nil, fmt.Errorf("loading signature table: %w", err)
	}
	return application.NewScanService(
		scanner.New(),
		func(n int64) domain.ContentReader { return scanner.NewReader(n) },
		config.New(),
		table,
	), nil
}

func loadRules() (*rules.Table, error) {
	t, err := rules.DefaultTable()
	if err != nil {
		return nil, fmt.Errorf("loading rule table: %w", err)
	}
	return t, nil
}

// projectPath resolves the optional positional path argument.
func projectPath(args []string) (string, error) {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	return abs, nil
}

func renderJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
