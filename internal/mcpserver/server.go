// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes one user's knowledge base as tools via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/othala/internal/kbservice"
)

// Server wraps the MCP server with Othala tools. All tools operate under the
// single user key given at construction.
type Server struct {
	mcp     *server.MCPServer
	svc     *kbservice.Service
	userKey string
}

// New creates a new MCP server with all Othala tools registered.
func New(svc *kbservice.Service, userKey string) *Server {
	s := &Server{svc: svc, userKey: userKey}

	s.mcp = server.NewMCPServer(
		"Othala",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes, newest-updated first. Optionally filter by a case-insensitive substring of title or content."),
		mcp.WithString("query", mcp.Description("Optional substring filter")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read one note with its tags, outgoing links, and backlinks."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note. Tags are given by name and created on demand."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title (non-empty)")),
		mcp.WithString("content", mcp.Description("Note body")),
		mcp.WithString("tags", mcp.Description("Comma-separated tag names")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List all tags, newest first."),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("link_notes",
		mcp.WithDescription("Create a directed link between two notes."),
		mcp.WithNumber("from_id", mcp.Required(), mcp.Description("Source note id")),
		mcp.WithNumber("to_id", mcp.Required(), mcp.Description("Target note id")),
	), s.linkNotes)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes that link to the specified note."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Note id to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("get_insights",
		mcp.WithDescription("Usage report: notes created/updated in the trailing window plus top tags."),
		mcp.WithNumber("range", mcp.Description("Window in days, 7 or 30 (default 7)")),
	), s.getInsights)

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

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := ""
	if q, err := req.RequireString("query"); err == nil {
		query = q
	}
	notes, err := s.svc.ListNotes(ctx, s.userKey, query, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(notes, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.GetNote(ctx, s.userKey, int64(id))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %d", id)), nil
	}
	out, _ := json.MarshalIndent(note, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content := ""
	if c, err := req.RequireString("content"); err == nil {
		content = c
	}

	var tagIDs []int64
	if raw, err := req.RequireString("tags"); err == nil {
		for _, name := range strings.Split(raw, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			tag, err := s.svc.EnsureTag(ctx, s.userKey, name)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			tagIDs = append(tagIDs, tag.ID)
		}
	}

	note, err := s.svc.CreateNote(ctx, s.userKey, kbservice.CreateNoteInput{
		Title:   title,
		Content: content,
		TagIDs:  tagIDs,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created note %d", note.ID)), nil
}

func (s *Server) listTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.svc.ListTags(ctx, s.userKey)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(tags, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) linkNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fromID, err := req.RequireInt("from_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	toID, err := req.RequireInt("to_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	link, err := s.svc.CreateLink(ctx, s.userKey, int64(fromID), int64(toID))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("linked %d -> %d", link.FromID, link.ToID)), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.GetNote(ctx, s.userKey, int64(id))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %d", id)), nil
	}
	if len(note.IncomingLinks) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	var lines []string
	for _, ln := range note.IncomingLinks {
		lines = append(lines, fmt.Sprintf("%d\t%s", ln.ID, ln.Title))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getInsights(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rangeDays := 7
	if n, err := req.RequireInt("range"); err == nil {
		rangeDays = n
	}
	report, err := s.svc.Insights(ctx, s.userKey, rangeDays)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(report, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
