// Package mcpserver exposes the analyzer as Model Context Protocol tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"semanticheck/internal/usecase"
)

// Tool names.
const (
	ToolCompareSimilarity = "compare_similarity"
	ToolAnalyzeDetailed   = "analyze_detailed"
	ToolDetectAI          = "detect_ai"
)

// Server wraps an MCP server whose tools call the analyzer.
type Server struct {
	srv      *server.MCPServer
	analyzer *usecase.Analyzer
	maxFile  int64
	logger   *slog.Logger
}

// New builds the MCP server. maxFile bounds documents read by detect_ai.
func New(analyzer *usecase.Analyzer, version string, maxFile int64, logger *slog.Logger) *Server {
	s := &Server{
		srv:      server.NewMCPServer("semanticheck", version, server.WithToolCapabilities(false)),
		analyzer: analyzer,
		maxFile:  maxFile,
		logger:   logger,
	}

	s.srv.AddTool(mcp.NewTool(ToolCompareSimilarity,
		mcp.WithDescription("Score the semantic similarity of two texts with the local embedding model and classify the plagiarism risk."),
		mcp.WithString("text_a", mcp.Required(), mcp.Description("First text")),
		mcp.WithString("text_b", mcp.Required(), mcp.Description("Second text")),
	), s.compareSimilarity)

	s.srv.AddTool(mcp.NewTool(ToolAnalyzeDetailed,
		mcp.WithDescription("Score two texts locally and ask the remote model for a written comparison."),
		mcp.WithString("text_a", mcp.Required(), mcp.Description("First text")),
		mcp.WithString("text_b", mcp.Required(), mcp.Description("Second text")),
	), s.analyzeDetailed)

	s.srv.AddTool(mcp.NewTool(ToolDetectAI,
		mcp.WithDescription("Estimate the probability that a text was machine-written. Pass either text or the path of a .txt or .docx file."),
		mcp.WithString("text", mcp.Description("Text to classify")),
		mcp.WithString("file_path", mcp.Description("Path of a .txt or .docx document to classify")),
	), s.detectAI)

	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer { return s.srv }

// Serve speaks MCP over in and out until ctx is cancelled or in is closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	std := server.NewStdioServer(s.srv)
	std.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	s.logger.Info("mcp server listening on stdio")
	return std.Listen(ctx, in, out)
}

func (s *Server) compareSimilarity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, b := req.GetString("text_a", ""), req.GetString("text_b", "")
	res, err := s.analyzer.Local(ctx, a, b)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"similarity_score": res.Score,
		"risk_level":       res.Risk,
	})
}

func (s *Server) analyzeDetailed(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, b := req.GetString("text_a", ""), req.GetString("text_b", "")
	res, err := s.analyzer.Detailed(ctx, a, b)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"similarity_score":  res.Score,
		"risk_level":        res.Risk,
		"detailed_analysis": res.Analysis.Text,
	})
}

func (s *Server) detectAI(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if path := req.GetString("file_path", ""); path != "" {
		data, err := s.readFile(path)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		res, err := s.analyzer.DetectAIFile(ctx, filepath.Base(path), data)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(res)
	}

	res, err := s.analyzer.DetectAI(ctx, req.GetString("text", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := io.Reader(f)
	if s.maxFile > 0 {
		r = io.LimitReader(f, s.maxFile+1)
	}
	return io.ReadAll(r)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
