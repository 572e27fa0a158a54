// Package mcp exposes the weaving engine over the Model Context Protocol,
// so an agent-driven editor can weave, restore, and harvest rules without
// shelling out to the CLI.
package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"yamlweave/internal/backup"
	"yamlweave/internal/config"
	"yamlweave/internal/format"
	"yamlweave/internal/logging"
	"yamlweave/internal/runner"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP SDK server around the weave operations.
type Server struct {
	MCPServer   *sdkmcp.Server
	ProjectRoot string
}

// NewServer creates an MCP server with the weave, restore, and extract
// tools. It captures the current working directory as the project root so
// relative tree and rules paths resolve correctly.
func NewServer() *Server {
	cwd, _ := os.Getwd()
	s := &Server{ProjectRoot: cwd}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "yamlweave", Version: "dev"},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "weave_tree",
		Description: "Weave YAML-configured snippets into a source tree at its anchor comments. Originals are backed up; re-runs are idempotent.",
	}, s.handleWeaveTree)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "restore_backup",
		Description: "Restore pristine sources from a backup tree written by weave_tree. Files edited by hand since the weave are skipped unless force is set.",
	}, s.handleRestoreBackup)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "extract_rules",
		Description: "Harvest the injected blocks out of a woven tree and return them as a YAML rules document.",
	}, s.handleExtractRules)
}

// --- Tool input/output types ---

type weaveTreeInput struct {
	Root       string   `json:"root" jsonschema:"source tree to weave"`
	Rules      []string `json:"rules" jsonschema:"rules file paths, merged in order"`
	Extensions []string `json:"extensions,omitempty" jsonschema:"eligible file suffixes (default .c and .h)"`
	Parallel   int      `json:"parallel,omitempty" jsonschema:"file worker pool size (default 1 = serial)"`
	OutputDir  string   `json:"output_dir,omitempty" jsonschema:"write woven copies here instead of weaving in place"`
	NoBackup   bool     `json:"no_backup,omitempty" jsonschema:"skip the backup tree on in-place runs"`
}

type weaveTreeOutput struct {
	Summary   string        `json:"summary"`
	Counts    runner.Counts `json:"counts"`
	BackupDir string        `json:"backup_dir,omitempty"`
	OutputDir string        `json:"output_dir,omitempty"`
}

type restoreBackupInput struct {
	BackupDir string `json:"backup_dir" jsonschema:"backup tree written by weave_tree"`
	Force     bool   `json:"force,omitempty" jsonschema:"overwrite files modified by hand since the weave"`
}

type restoreBackupOutput struct {
	Restored int                    `json:"restored"`
	Skipped  int                    `json:"skipped"`
	Failed   int                    `json:"failed"`
	Results  []backup.RestoreResult `json:"results"`
}

type extractRulesInput struct {
	Root       string   `json:"root" jsonschema:"woven source tree to harvest"`
	Extensions []string `json:"extensions,omitempty" jsonschema:"eligible file suffixes (default .c and .h)"`
	OutputPath string   `json:"output_path,omitempty" jsonschema:"also write the rules document to this path"`
}

type extractRulesOutput struct {
	RulesYAML    string `json:"rules_yaml"`
	FilesScanned int    `json:"files_scanned"`
	Anchors      int    `json:"anchors"`
	Snippets     int    `json:"snippets"`
}

// --- Tool handlers ---

func (s *Server) handleWeaveTree(ctx context.Context, _ *sdkmcp.CallToolRequest, input weaveTreeInput) (*sdkmcp.CallToolResult, weaveTreeOutput, error) {
	r, err := runner.New(runner.Options{
		Root:      s.resolve(input.Root),
		Rules:     s.resolveAll(input.Rules),
		OutputDir: s.resolveOptional(input.OutputDir),
		NoBackup:  input.NoBackup,
		Settings: config.Settings{
			Extensions: input.Extensions,
			Parallel:   input.Parallel,
		},
	})
	if err != nil {
		return nil, weaveTreeOutput{}, err
	}

	report, err := r.Run(ctx)
	if err != nil {
		return nil, weaveTreeOutput{}, fmt.Errorf("weave_tree: %w", err)
	}

	logging.New("mcp").Info("weave_tree complete",
		"root", input.Root, "woven", report.Counts.FilesWoven, "failed", report.Counts.FilesFailed)

	return nil, weaveTreeOutput{
		Summary:   report.Render(format.Markdown),
		Counts:    report.Counts,
		BackupDir: report.BackupDir,
		OutputDir: report.OutputDir,
	}, nil
}

func (s *Server) handleRestoreBackup(ctx context.Context, _ *sdkmcp.CallToolRequest, input restoreBackupInput) (*sdkmcp.CallToolResult, restoreBackupOutput, error) {
	if input.BackupDir == "" {
		return nil, restoreBackupOutput{}, fmt.Errorf("backup_dir is required")
	}

	set, err := backup.LoadSet(s.resolve(input.BackupDir))
	if err != nil {
		return nil, restoreBackupOutput{}, fmt.Errorf("restore_backup: %w", err)
	}

	results := set.Restore(input.Force)
	out := restoreBackupOutput{Results: results}
	for _, res := range results {
		switch res.Status {
		case backup.RestoreDone:
			out.Restored++
		case backup.RestoreSkipped:
			out.Skipped++
		case backup.RestoreFailed:
			out.Failed++
		}
	}

	logging.New("mcp").Info("restore_backup complete",
		"dir", input.BackupDir, "restored", out.Restored, "skipped", out.Skipped, "failed", out.Failed)
	return nil, out, nil
}

func (s *Server) handleExtractRules(ctx context.Context, _ *sdkmcp.CallToolRequest, input extractRulesInput) (*sdkmcp.CallToolResult, extractRulesOutput, error) {
	if input.Root == "" {
		return nil, extractRulesOutput{}, fmt.Errorf("root is required")
	}

	res, err := runner.Extract(s.resolve(input.Root), config.Settings{Extensions: input.Extensions})
	if err != nil {
		return nil, extractRulesOutput{}, fmt.Errorf("extract_rules: %w", err)
	}

	data, err := res.Catalog.Dump()
	if err != nil {
		return nil, extractRulesOutput{}, fmt.Errorf("extract_rules: %w", err)
	}
	if input.OutputPath != "" {
		if err := os.WriteFile(s.resolve(input.OutputPath), data, 0644); err != nil {
			return nil, extractRulesOutput{}, fmt.Errorf("extract_rules: %w", err)
		}
	}

	return nil, extractRulesOutput{
		RulesYAML:    string(data),
		FilesScanned: res.FilesScanned,
		Anchors:      res.Anchors,
		Snippets:     res.Catalog.Len(),
	}, nil
}

// resolve anchors a relative path at the project root.
func (s *Server) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.ProjectRoot, path)
}

func (s *Server) resolveOptional(path string) string {
	if path == "" {
		return ""
	}
	return s.resolve(path)
}

func (s *Server) resolveAll(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = s.resolve(p)
	}
	return out
}
