package mcp

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"

	"github.com/autoci/autoci/internal/adapters/outbound/config"
	"github.com/autoci/autoci/internal/adapters/outbound/gitinfo"
	"github.com/autoci/autoci/internal/adapters/outbound/scanner"
	"github.com/autoci/autoci/internal/adapters/outbound/writer"
	"github.com/autoci/autoci/internal/application"
	"github.com/autoci/autoci/internal/domain"
	"github.com/autoci/autoci/internal/domain/detection"
	"github.com/autoci/autoci/internal/domain/rules"
)

// services bundles what the tool and resource handlers call into.
type services struct {
	scan     *application.ScanService
	generate *application.GenerateService
	audit    *application.AuditService
}

func newServices() (*services, error) {
	signatures, err := detection.DefaultTable()
	if err != nil {
		return nil, fmt.Errorf("loading signature table: %w", err)
	}
	ruleTable, err := rules.DefaultTable()
	if err != nil {
		return nil, fmt.Errorf("loading rule table: %w", err)
	}
	scan := application.NewScanService(
		scanner.New(),
		func(n int64) domain.ContentReader { return scanner.NewReader(n) },
		config.New(),
		signatures,
	)
	return &services{
		scan:     scan,
		generate: application.NewGenerateService(scan, ruleTable, gitinfo.New(), writer.New()),
		audit:    application.NewAuditService(scan, ruleTable),
	}, nil
}

// NewAutoCIMCPServer creates an MCP server with every autoci tool and
// resource registered. projectPath is the repository the tools operate on.
func NewAutoCIMCPServer(projectPath string) (*server.MCPServer, error) {
	svc, err := newServices()
	if err != nil {
		return nil, err
	}

	s := server.NewMCPServer(
		"autoci",
		"0.1.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	registerTools(s, svc, projectPath)
	registerResources(s, svc, projectPath)

	return s, nil
}
