package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"bountylink-backend/actions"
	"bountylink-backend/handlers"
)

// MCPServer exposes the action surface to agent clients as read-only tools.
// Agents discover what a wallet could do next without driving the signing
// flow themselves.
type MCPServer struct {
	mcpServer *server.MCPServer
	ledger    handlers.Ledger
	composer  *actions.Composer
}

// NewMCPServer creates the MCP server and registers its tools.
func NewMCPServer(l handlers.Ledger, c *actions.Composer) *MCPServer {
	mcpServer := server.NewMCPServer(
		"Bountylink Actions MCP Server",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s := &MCPServer{
		mcpServer: mcpServer,
		ledger:    l,
		composer:  c,
	}
	s.registerTools()
	return s
}

// GetMCPServer returns the underlying server for transport setup.
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *MCPServer) registerTools() {
	s.registerGetTaskActionTool()
	s.registerGetServiceActionTool()
	s.registerResolveViewerStateTool()
}

// registerGetTaskActionTool returns the discovery payload for a task.
func (s *MCPServer) registerGetTaskActionTool() {
	tool := mcp.NewTool("get_task_action",
		mcp.WithDescription("Get the action card a wallet would see for a task"),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("ID of the task")),
	)

	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		taskID, err := request.RequireString("task_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		res, err := s.ledger.GetTask(ctx, taskID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to get task: %v", err)), nil
		}

		return toolJSON(s.composer.Discovery(actions.SurfaceTasks, res))
	})
}

// registerGetServiceActionTool returns the discovery payload for a service.
func (s *MCPServer) registerGetServiceActionTool() {
	tool := mcp.NewTool("get_service_action",
		mcp.WithDescription("Get the action card a wallet would see for a service"),
		mcp.WithString("service_id", mcp.Required(), mcp.Description("ID of the service")),
	)

	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		serviceID, err := request.RequireString("service_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		res, err := s.ledger.GetService(ctx, serviceID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to get service: %v", err)), nil
		}

		return toolJSON(s.composer.Discovery(actions.SurfaceServices, res))
	})
}

// registerResolveViewerStateTool reports where a given account sits in a
// task's state machine.
func (s *MCPServer) registerResolveViewerStateTool() {
	tool := mcp.NewTool("resolve_viewer_state",
		mcp.WithDescription("Resolve an account's position in a task's action state machine"),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("ID of the task")),
		mcp.WithString("account", mcp.Required(), mcp.Description("Caller account address")),
	)

	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		taskID, err := request.RequireString("task_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		account, err := request.RequireString("account")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		res, err := s.ledger.GetTask(ctx, taskID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to get task: %v", err)), nil
		}

		state := actions.ResolveTask(res, account, true)
		return mcp.NewToolResultText(fmt.Sprintf("Account %s is in state %s for task %s", account, state, taskID)), nil
	})
}

func toolJSON(payload interface{}) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode payload: %v", err)), nil
	}
	return mcp.NewToolResultText(string(raw)), nil
}
