package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kazaneza/openchat/internal/core/domain"
	"github.com/kazaneza/openchat/internal/core/ports"
)

const defaultTurnListLimit = 50

const noEvidenceResponse = "I could not find supporting information for this question in the available documents. " +
	"Please try rephrasing the question or ask about a different topic."

// AnswerUseCase sequences the full pipeline for one query: context assembly,
// analysis, hybrid retrieval, re-ranking, completion, and quality checks.
type AnswerUseCase struct {
	retrieval     *RetrievalUseCase
	contextMgr    *ContextUseCase
	completion    ports.CompletionService
	conversations ports.ConversationStore
	persona       string
}

func NewAnswerUseCase(
	retrieval *RetrievalUseCase,
	contextMgr *ContextUseCase,
	completion ports.CompletionService,
	conversations ports.ConversationStore,
	persona string,
) *AnswerUseCase {
	return &AnswerUseCase{
		retrieval:     retrieval,
		contextMgr:    contextMgr,
		completion:    completion,
		conversations: conversations,
		persona:       persona,
	}
}

func (uc *AnswerUseCase) Answer(ctx context.Context, req domain.AnswerRequest) (*domain.EngineAnswer, error) {
	return uc.answer(ctx, req, nil)
}

// AnswerStream emits response fragments through onDelta while the completion
// service streams. Validation runs only on the fully drained answer; a
// failed stream never reaches validation.
func (uc *AnswerUseCase) AnswerStream(
	ctx context.Context,
	req domain.AnswerRequest,
	onDelta func(delta string) error,
) (*domain.EngineAnswer, error) {
	return uc.answer(ctx, req, onDelta)
}

func (uc *AnswerUseCase) answer(
	ctx context.Context,
	req domain.AnswerRequest,
	onDelta func(delta string) error,
) (*domain.EngineAnswer, error) {
	if strings.TrimSpace(req.OrganizationID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer", fmt.Errorf("organization_id is required"))
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer", fmt.Errorf("query is required"))
	}

	conversationID := strings.TrimSpace(req.ConversationID)
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	if _, err := uc.conversations.EnsureConversation(ctx, req.OrganizationID, conversationID); err != nil {
		return nil, fmt.Errorf("ensure conversation: %w", err)
	}

	cctx, err := uc.contextMgr.BuildContext(ctx, req.OrganizationID, conversationID, req.Query)
	if err != nil {
		return nil, fmt.Errorf("build context: %w", err)
	}

	profile := analyzeQuery(cctx.ResolvedQuery)
	params := selectRetrievalParameters(profile)

	result, err := uc.retrieval.Retrieve(ctx, req.OrganizationID, cctx.ResolvedQuery, profile, params)
	if err != nil {
		return nil, fmt.Errorf("retrieve evidence: %w", err)
	}

	evidence := diversifyCandidates(rerankCandidates(profile, result.Candidates), maxPassagesPerDocument)
	if len(evidence) == 0 {
		return uc.answerWithoutEvidence(ctx, req, conversationID, cctx, profile, onDelta)
	}

	prompt := buildAnswerPrompt(uc.persona, cctx, evidence, cctx.ResolvedQuery)

	var responseText string
	if onDelta != nil {
		responseText, err = uc.completion.CompleteStream(ctx, prompt, onDelta)
	} else {
		responseText, err = uc.completion.Complete(ctx, prompt)
	}
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	validation := validateResponse(responseText, evidence, cctx.ResolvedQuery, profile)
	validation.Warnings = append(validation.Warnings, cctx.Warnings...)
	factCheck := factCheckResponse(responseText, evidence)
	confidence := computeConfidence(meanFinalScore(evidence), validation.QualityScore, factCheck.Score, len(evidence))
	followUps := generateFollowUps(profile, cctx.ResolvedQuery, evidence, cctx.Entities, cctx.Topics)

	answer := &domain.EngineAnswer{
		ResponseText:      responseText,
		Sources:           evidenceSources(evidence),
		Confidence:        confidence,
		Validation:        validation,
		FactCheck:         factCheck,
		FollowUpQuestions: followUps,
		ConversationID:    conversationID,
		Profile:           profile,
	}
	if err := uc.persistExchange(ctx, req, conversationID, answer); err != nil {
		return nil, err
	}
	return answer, nil
}

// answerWithoutEvidence handles zero-evidence retrieval: a fixed response
// with confidence forced to very low, never an error.
func (uc *AnswerUseCase) answerWithoutEvidence(
	ctx context.Context,
	req domain.AnswerRequest,
	conversationID string,
	cctx *domain.ConversationContext,
	profile domain.QueryProfile,
	onDelta func(delta string) error,
) (*domain.EngineAnswer, error) {
	if onDelta != nil {
		if err := onDelta(noEvidenceResponse); err != nil {
			return nil, fmt.Errorf("stream response: %w", err)
		}
	}

	validation := domain.ValidationResult{
		IsValid:     true,
		Warnings:    append([]string{"no supporting evidence above the similarity threshold"}, cctx.Warnings...),
		Uncertainty: domain.UncertaintyNone,
	}

	answer := &domain.EngineAnswer{
		ResponseText:      noEvidenceResponse,
		Sources:           []domain.Source{},
		Confidence:        computeConfidence(0, 0, 0, 0),
		Validation:        validation,
		FactCheck:         domain.FactCheckReport{},
		FollowUpQuestions: generateFollowUps(profile, cctx.ResolvedQuery, nil, cctx.Entities, cctx.Topics),
		ConversationID:    conversationID,
		Profile:           profile,
	}
	if err := uc.persistExchange(ctx, req, conversationID, answer); err != nil {
		return nil, err
	}
	return answer, nil
}

// persistExchange appends the user and assistant turns after a successful
// pipeline run. Turn allocation is serialized per conversation by the store.
func (uc *AnswerUseCase) persistExchange(
	ctx context.Context,
	req domain.AnswerRequest,
	conversationID string,
	answer *domain.EngineAnswer,
) error {
	turn, err := uc.conversations.NextUserTurn(ctx, req.OrganizationID, conversationID)
	if err != nil {
		return fmt.Errorf("next user turn: %w", err)
	}

	now := time.Now().UTC()
	if err := uc.conversations.AppendTurn(ctx, domain.Turn{
		ID:             uuid.NewString(),
		OrganizationID: req.OrganizationID,
		ConversationID: conversationID,
		UserTurn:       turn,
		Role:           domain.RoleUser,
		Content:        req.Query,
		CreatedAt:      now,
	}); err != nil {
		return fmt.Errorf("append user turn: %w", err)
	}

	if err := uc.conversations.AppendTurn(ctx, domain.Turn{
		ID:             uuid.NewString(),
		OrganizationID: req.OrganizationID,
		ConversationID: conversationID,
		UserTurn:       turn,
		Role:           domain.RoleAssistant,
		Content:        answer.ResponseText,
		Metadata: map[string]string{
			"intent":           string(answer.Profile.Intent),
			"confidence_level": string(answer.Confidence.Level),
		},
		CreatedAt: now,
	}); err != nil {
		return fmt.Errorf("append assistant turn: %w", err)
	}
	return nil
}

// ListTurns exposes stored conversation history to the transport layer.
func (uc *AnswerUseCase) ListTurns(
	ctx context.Context,
	organizationID, conversationID string,
	limit int,
) ([]domain.Turn, error) {
	if organizationID == "" || conversationID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "list turns", fmt.Errorf("organization_id and conversation_id are required"))
	}
	if limit <= 0 {
		limit = defaultTurnListLimit
	}

	turns, err := uc.conversations.ListRecentTurns(ctx, organizationID, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	return turns, nil
}

func buildAnswerPrompt(
	persona string,
	cctx *domain.ConversationContext,
	evidence []domain.RetrievalCandidate,
	question string,
) string {
	var b strings.Builder

	if persona != "" {
		b.WriteString(persona)
		b.WriteString("\n\n")
	}

	if cctx.Summary != "" {
		b.WriteString("Conversation summary: ")
		b.WriteString(cctx.Summary)
		b.WriteString("\n\n")
	}

	if len(cctx.RecentTurns) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, turn := range cctx.RecentTurns {
			b.WriteString(turn.Role)
			b.WriteString(": ")
			b.WriteString(turn.Content)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if line := entityLine(cctx.Entities); line != "" {
		b.WriteString("Previously referenced: ")
		b.WriteString(line)
		b.WriteString("\n\n")
	}

	b.WriteString("Answer the question using ONLY the document excerpts below. ")
	b.WriteString("If the excerpts do not contain the answer, say so clearly. ")
	b.WriteString("Mention the document names you relied on.\n\n")

	for i, c := range evidence {
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		fmt.Fprintf(&b, "[%d] From %s (page %d) - Relevance: %.2f\n%s",
			i+1, c.Passage.DocumentName, c.Passage.PageNumber, c.FinalScore, c.Passage.Text)
	}

	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\nAnswer:")
	return b.String()
}

func entityLine(entities domain.EntitySet) string {
	var parts []string
	if len(entities.Documents) > 0 {
		parts = append(parts, "documents: "+strings.Join(entities.Documents, ", "))
	}
	if len(entities.Values) > 0 {
		parts = append(parts, "values: "+strings.Join(entities.Values, ", "))
	}
	if len(entities.Dates) > 0 {
		parts = append(parts, "dates: "+strings.Join(entities.Dates, ", "))
	}
	return strings.Join(parts, " | ")
}

func evidenceSources(evidence []domain.RetrievalCandidate) []domain.Source {
	sources := make([]domain.Source, 0, len(evidence))
	for _, c := range evidence {
		sources = append(sources, domain.Source{
			DocumentName: c.Passage.DocumentName,
			Page:         c.Passage.PageNumber,
			Similarity:   c.FinalScore,
		})
	}
	return sources
}

func meanFinalScore(evidence []domain.RetrievalCandidate) float64 {
	if len(evidence) == 0 {
		return 0
	}
	var sum float64
	for _, c := range evidence {
		sum += c.FinalScore
	}
	return sum / float64(len(evidence))
}
