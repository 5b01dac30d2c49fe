package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/autoci/autoci/internal/application"
)

func registerTools(s *server.MCPServer, svc *services, projectPath string) {
	s.AddTool(
		mcplib.NewTool("autoci_scan",
			mcplib.WithDescription("Detect the languages, frameworks, test tools, build tools, containers, IaC, package managers and CI systems of the project, with confidences"),
		),
		handleScan(svc, projectPath),
	)

	s.AddTool(
		mcplib.NewTool("autoci_generate",
			mcplib.WithDescription("Generate a CI pipeline for the project. Returns the pipeline file path and content; nothing is written unless write is true"),
			mcplib.WithString("ci", mcplib.Description("Target platform: github, gitlab or circleci (default: existing CI, else github)")),
			mcplib.WithBoolean("no_optimize", mcplib.Description("Disable caching, version matrices and parallel jobs")),
			mcplib.WithString("branches", mcplib.Description("Comma-separated branches that trigger the pipeline")),
			mcplib.WithBoolean("write", mcplib.Description("Write the pipeline file into the project")),
		),
		handleGenerate(svc, projectPath),
	)

	s.AddTool(
		mcplib.NewTool("autoci_audit",
			mcplib.WithDescription("List pipeline practices the project is missing: caching, security scanning, test coverage"),
		),
		handleAudit(svc, projectPath),
	)
}

func handleScan(svc *services, projectPath string) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		a, err := svc.scan.Scan(ctx, projectPath)
		if err != nil {
			return errorResult(fmt.Sprintf("scan failed: %v", err)), nil
		}
		return jsonResult(a)
	}
}

// generateResult is the tool payload; the analysis is left out since
// autoci_scan already returns it.
type generateResult struct {
	Platform string   `json:"platform"`
	Path     string   `json:"path"`
	Written  string   `json:"written,omitempty"`
	Commit   string   `json:"commit,omitempty"`
	Jobs     []string `json:"jobs"`
	Warnings []string `json:"warnings,omitempty"`
	Content  string   `json:"content"`
}

func handleGenerate(svc *services, projectPath string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		args := request.GetArguments()
		platform, _ := args["ci"].(string)
		noOptimize, _ := args["no_optimize"].(bool)
		write, _ := args["write"].(bool)
		var branches []string
		if b, ok := args["branches"].(string); ok {
			branches = splitAndTrim(b)
		}

		res, err := svc.generate.Generate(ctx, projectPath, application.GenerateOptions{
			Platform:   platform,
			DryRun:     !write,
			NoOptimize: noOptimize,
			Branches:   branches,
		})
		if err != nil {
			return errorResult(fmt.Sprintf("generate failed: %v", err)), nil
		}

		out := generateResult{
			Platform: string(res.Pipeline.Platform),
			Path:     res.Pipeline.Path,
			Written:  res.Written,
			Commit:   res.Commit,
			Warnings: res.Analysis.Warnings,
			Content:  res.Pipeline.Content,
		}
		for _, j := range res.Spec.Jobs {
			out.Jobs = append(out.Jobs, j.Name)
		}
		return jsonResult(out)
	}
}

func handleAudit(svc *services, projectPath string) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		report, err := svc.audit.Audit(ctx, projectPath)
		if err != nil {
			return errorResult(fmt.Sprintf("audit failed: %v", err)), nil
		}
		return jsonResult(report)
	}
}

func splitAndTrim(s string) []string {
	var result []string
	for _, p := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// jsonResult marshals v to JSON and returns it as a text content result.
func jsonResult(v any) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(string(data))},
	}, nil
}

// errorResult returns a tool result that indicates an error occurred.
func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(msg)},
		IsError: true,
	}
}
