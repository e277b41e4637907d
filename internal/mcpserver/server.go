// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes read-only office tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/lexdesk/internal/apperr"
	"github.com/starford/lexdesk/internal/models"
	"github.com/starford/lexdesk/internal/office"
)

// StatusSource reports the cloud sync status.
type StatusSource interface {
	Status() models.SyncStatus
}

// Server wraps the MCP server with office tools.
type Server struct {
	mcp    *server.MCPServer
	office *office.Service
	sync   StatusSource
	now    func() time.Time
}

// New creates a new MCP server with all office tools registered. sync may be nil.
func New(svc *office.Service, sync StatusSource) *Server {
	s := &Server{office: svc, sync: sync, now: time.Now}

	s.mcp = server.NewMCPServer(
		"lexdesk",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_records",
		mcp.WithDescription("Search clients, cases, invoices and expenses. Returns up to 10 hits per group."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search text (name, case number, invoice number, phone...)")),
	), s.searchRecords)

	s.mcp.AddTool(mcp.NewTool("get_client",
		mcp.WithDescription("Read one client with its cases and invoices."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Client id")),
	), s.getClient)

	s.mcp.AddTool(mcp.NewTool("list_cases",
		mcp.WithDescription("List cases, optionally only those of one client."),
		mcp.WithString("client_id", mcp.Description("Optional client id filter")),
	), s.listCases)

	s.mcp.AddTool(mcp.NewTool("upcoming_reminders",
		mcp.WithDescription("Hearing and document-review reminders due within the next N days."),
		mcp.WithNumber("days", mcp.Description("Look-ahead window in days (default 7)")),
	), s.upcomingReminders)

	s.mcp.AddTool(mcp.NewTool("sync_status",
		mcp.WithDescription("Cloud sync status: enabled flag, phase, last pull/push and last error."),
	), s.syncStatus)

	s.mcp.AddResource(
		mcp.NewResource(DataModelURI, "Office Data Model",
			mcp.WithResourceDescription("Collections and record relationships of the office data."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDataModelResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.office.Search(query))
}

type clientDetail struct {
	Client   models.Client    `json:"client"`
	Cases    []models.Case    `json:"cases"`
	Invoices []models.Invoice `json:"invoices"`
}

func (s *Server) getClient(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := s.office.Client(id)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(clientDetail{
		Client:   c,
		Cases:    s.office.Cases(id),
		Invoices: s.office.Invoices(id),
	})
}

func (s *Server) listCases(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	clientID := req.GetString("client_id", "")
	return jsonResult(s.office.Cases(clientID))
}

func (s *Server) upcomingReminders(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	days := req.GetInt("days", 7)
	if days < 0 {
		return mcp.NewToolResultError("days must not be negative"), nil
	}
	now := s.now()
	return jsonResult(s.office.Reminders(office.ReminderFilter{
		From: now.Format(models.DateLayout),
		To:   now.AddDate(0, 0, days).Format(models.DateLayout),
	}))
}

func (s *Server) syncStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.sync == nil {
		return jsonResult(models.SyncStatus{Phase: "disabled"})
	}
	return jsonResult(s.sync.Status())
}

func (s *Server) readDataModelResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      DataModelURI,
			MIMEType: "text/markdown",
			Text:     DataModel,
		},
	}, nil
}
