// Package mcp serves a nuggets collection over the Model Context Protocol.
//
// Tools are read-only: a random nugget for a chat, a chat's topics and
// preferences, and collection-wide counts. A stats resource mirrors the
// counts tool.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hurttlocker/nuggets/internal/nugget"
	"github.com/hurttlocker/nuggets/internal/state"
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	State   *state.Manager
	Version string // reported in server info
}

// refreshMu keeps concurrent tool calls from reloading state at once.
// mcp-go dispatches handlers on their own goroutines.
var refreshMu sync.Mutex

// NewServer creates an MCP server with the nuggets tools and resources.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}

	s := server.NewMCPServer(
		"Nuggets",
		ver,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(true, false),
	)

	registerWisdomTool(s, cfg.State)
	registerTopicsTool(s, cfg.State)
	registerStatsTool(s, cfg.State)
	registerStatsResource(s, cfg.State)
	return s
}

// ServeStdio runs the server on stdin/stdout until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func refresh(ctx context.Context, mgr *state.Manager) {
	refreshMu.Lock()
	defer refreshMu.Unlock()
	mgr.Refresh(ctx)
}

func chatIDArg(req mcp.CallToolRequest) (int64, error) {
	v, err := req.RequireFloat("chat_id")
	if err != nil {
		return 0, fmt.Errorf("chat_id is required")
	}
	if v != math.Trunc(v) || math.Abs(v) > 1<<53 {
		return 0, fmt.Errorf("chat_id must be an integer")
	}
	return int64(v), nil
}

func registerWisdomTool(s *server.MCPServer, mgr *state.Manager) {
	tool := mcp.NewTool("nuggets_wisdom",
		mcp.WithDescription("Return one random wisdom nugget from a chat's highlights, filtered by the chat's preferred topics."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithNumber("chat_id",
			mcp.Required(),
			mcp.Description("Telegram chat id"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		chatID, err := chatIDArg(req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		refresh(ctx, mgr)
		text := nugget.Select(mgr.Highlights(chatID), mgr.Preferences(chatID), nil)
		return mcp.NewToolResultText(text), nil
	})
}

func registerTopicsTool(s *server.MCPServer, mgr *state.Manager) {
	tool := mcp.NewTool("nuggets_topics",
		mcp.WithDescription("List the tags found in a chat's highlights and the topics the chat has selected."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithNumber("chat_id",
			mcp.Required(),
			mcp.Description("Telegram chat id"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		chatID, err := chatIDArg(req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		refresh(ctx, mgr)

		tags := mgr.UniqueTags(chatID)
		if tags == nil {
			tags = []string{}
		}
		selected := mgr.Preferences(chatID)
		if selected == nil {
			selected = []string{}
		}
		payload := map[string]interface{}{
			"chat_id":    chatID,
			"highlights": mgr.HighlightCount(chatID),
			"tags":       tags,
			"selected":   selected,
			"reminders":  mgr.RemindersEnabled(chatID),
		}
		data, _ := json.MarshalIndent(payload, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerStatsTool(s *server.MCPServer, mgr *state.Manager) {
	tool := mcp.NewTool("nuggets_stats",
		mcp.WithDescription("Count chats, stored highlights and weekly reminder subscribers."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		refresh(ctx, mgr)
		data, _ := json.MarshalIndent(mgr.Stats(), "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerStatsResource(s *server.MCPServer, mgr *state.Manager) {
	resource := mcp.NewResource(
		"nuggets://stats",
		"Collection Statistics",
		mcp.WithResourceDescription("Chat, highlight and reminder subscriber counts."),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		refresh(ctx, mgr)
		data, _ := json.MarshalIndent(mgr.Stats(), "", "  ")
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}
