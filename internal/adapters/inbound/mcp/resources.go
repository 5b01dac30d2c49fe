package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/autoci/autoci/internal/domain/detection"
	"github.com/autoci/autoci/internal/domain/rules"
)

const (
	uriAnalysis   = "autoci://analysis"
	uriSignatures = "autoci://signatures"
	uriRules      = "autoci://rules"
)

func registerResources(s *server.MCPServer, svc *services, projectPath string) {
	s.AddResource(
		mcplib.NewResource(
			uriAnalysis,
			"Repository Analysis",
			mcplib.WithResourceDescription("Technologies detected in the project"),
			mcplib.WithMIMEType("application/json"),
		),
		handleAnalysisResource(svc, projectPath),
	)

	s.AddResource(
		mcplib.NewResource(
			uriSignatures,
			"Signature Table",
			mcplib.WithResourceDescription("Detection signatures: technology, evidence pattern and weight"),
			mcplib.WithMIMEType("application/yaml"),
		),
		staticResource(uriSignatures, detection.RawTable()),
	)

	s.AddResource(
		mcplib.NewResource(
			uriRules,
			"Rule Table",
			mcplib.WithResourceDescription("Rules mapping detected technologies onto pipeline jobs"),
			mcplib.WithMIMEType("application/yaml"),
		),
		staticResource(uriRules, rules.RawTable()),
	)
}

func handleAnalysisResource(svc *services, projectPath string) server.ResourceHandlerFunc {
	return func(ctx context.Context, _ mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		a, err := svc.scan.Scan(ctx, projectPath)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}

		data, err := json.MarshalIndent(a, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling analysis: %w", err)
		}

		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      uriAnalysis,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	}
}

func staticResource(uri string, data []byte) server.ResourceHandlerFunc {
	return func(context.Context, mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      uri,
				MIMEType: "application/yaml",
				Text:     string(data),
			},
		}, nil
	}
}
