package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kazaneza/openchat/internal/core/domain"
	"github.com/kazaneza/openchat/internal/core/ports"
	"github.com/kazaneza/openchat/internal/infrastructure/prompts"
)

// Deps holds the services the MCP surface exposes.
type Deps struct {
	Answers  ports.AnswerService
	Searcher ports.PassageSearcher
	Prompts  prompts.Library
}

// NewServer creates an MCP server exposing the answer engine over stdio.
func NewServer(deps Deps) *server.MCPServer {
	state := &toolState{deps: deps}

	s := server.NewMCPServer(
		"openchat",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("openchat — organization knowledge base that answers questions from indexed documents with cited sources and a confidence report."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("answer",
			mcp.WithDescription("Answer a question from the organization's indexed documents. Returns the answer text with sources, confidence report and follow-up questions."),
			mcp.WithString("organization_id", mcp.Description("Organization whose documents to search"), mcp.Required()),
			mcp.WithString("query", mcp.Description("The question to answer"), mcp.Required()),
			mcp.WithString("conversation_id", mcp.Description("Optional conversation to continue for multi-turn context")),
		),
		state.answer,
	)

	s.AddTool(
		mcp.NewTool("search_passages",
			mcp.WithDescription("Hybrid search over indexed passages without generating an answer."),
			mcp.WithString("organization_id", mcp.Description("Organization whose documents to search"), mcp.Required()),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of passages (default 5)")),
		),
		state.searchPassages,
	)

	s.AddResource(
		mcp.NewResource(
			"openchat://suggestions",
			"Question Suggestions",
			mcp.WithResourceDescription("Starter questions plus follow-ups from the most recent answer"),
			mcp.WithMIMEType("application/json"),
		),
		state.suggestions,
	)

	return s
}

type toolState struct {
	deps Deps

	mu            sync.Mutex
	lastFollowUps []string
}

func (s *toolState) answer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	organizationID, err := req.RequireString("organization_id")
	if err != nil {
		return mcpError("organization_id is required"), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcpError("query is required"), nil
	}
	conversationID := req.GetString("conversation_id", "")

	answer, err := s.deps.Answers.Answer(ctx, domain.AnswerRequest{
		OrganizationID: organizationID,
		ConversationID: conversationID,
		Query:          query,
	})
	if err != nil {
		return mcpError(fmt.Sprintf("answer failed: %v", err)), nil
	}

	s.mu.Lock()
	s.lastFollowUps = answer.FollowUpQuestions
	s.mu.Unlock()

	b, err := json.Marshal(answer)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal answer: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func (s *toolState) searchPassages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	organizationID, err := req.RequireString("organization_id")
	if err != nil {
		return mcpError("organization_id is required"), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcpError("query is required"), nil
	}

	limit := req.GetInt("limit", 5)
	if limit <= 0 {
		limit = 5
	}
	if limit > 50 {
		limit = 50
	}

	candidates, err := s.deps.Searcher.SearchPassages(ctx, organizationID, query, limit)
	if err != nil {
		return mcpError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(candidates) == 0 {
		return mcpText("[]"), nil
	}

	type passageResult struct {
		DocumentName string  `json:"document_name"`
		Page         int     `json:"page"`
		Text         string  `json:"text"`
		Score        float64 `json:"score"`
	}

	results := make([]passageResult, len(candidates))
	for i, c := range candidates {
		results[i] = passageResult{
			DocumentName: c.Passage.DocumentName,
			Page:         c.Passage.PageNumber,
			Text:         c.Passage.Text,
			Score:        c.FinalScore,
		}
	}

	b, err := json.Marshal(results)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func (s *toolState) suggestions(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	s.mu.Lock()
	followUps := s.lastFollowUps
	s.mu.Unlock()

	payload := struct {
		StarterQuestions  []string `json:"starter_questions"`
		FollowUpQuestions []string `json:"follow_up_questions"`
	}{
		StarterQuestions:  s.deps.Prompts.StarterQuestions,
		FollowUpQuestions: followUps,
	}
	if payload.StarterQuestions == nil {
		payload.StarterQuestions = []string{}
	}
	if payload.FollowUpQuestions == nil {
		payload.FollowUpQuestions = []string{}
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal suggestions: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
