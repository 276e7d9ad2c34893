package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kazaneza/openchat/internal/core/domain"
	"github.com/kazaneza/openchat/internal/core/ports"
)

const (
	contextTokenBudget  = 4000
	summaryTriggerTurns = 15
	historyLoadLimit    = 50
	entityLimit         = 5
	topicLimit          = 10
	questionLimit       = 5
)

var (
	topicPattern    = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]*)*\b`)
	quotedPattern   = regexp.MustCompile(`["']([^"']+)["']`)
	documentPattern = regexp.MustCompile(`(?i)\b(?:document|file|report|paper|article)[\s:]+"?([^".,;\n]+)"?`)
	valuePattern    = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*(?:GB|MB|KB|%|dollars?|\$|euros?|€)`)
	datePattern     = regexp.MustCompile(`\b(?:\d{1,2}[-/]\d{1,2}[-/]\d{2,4}|\d{4})\b`)
)

var pronounTerms = []string{"it", "its", "they", "them", "their", "he", "she", "him", "her"}

var demonstrativeTerms = []string{"this", "that", "these", "those", "the same", "such"}

var vagueTerms = []string{"the document", "the file", "the previous", "earlier", "mentioned", "above"}

// commonTopicWords are single capitalized words that carry no topical
// meaning on their own, usually sentence openers.
var commonTopicWords = map[string]struct{}{
	"what": {}, "when": {}, "where": {}, "who": {}, "why": {}, "how": {}, "which": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "do": {}, "does": {}, "did": {},
	"can": {}, "could": {}, "will": {}, "would": {}, "should": {}, "may": {}, "might": {},
	"has": {}, "have": {}, "had": {}, "the": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"it": {}, "they": {}, "we": {}, "you": {}, "i": {}, "he": {}, "she": {},
	"tell": {}, "show": {}, "give": {}, "find": {}, "get": {}, "make": {}, "use": {},
	"please": {}, "thanks": {}, "thank": {}, "hello": {}, "hi": {}, "hey": {},
	"yes": {}, "no": {}, "not": {}, "and": {}, "or": {}, "but": {}, "if": {}, "then": {},
	"compare": {}, "list": {}, "explain": {}, "describe": {}, "define": {},
	"summarize": {}, "analyze": {}, "evaluate": {}, "my": {}, "your": {}, "our": {},
	"about": {}, "also": {},
}

// ContextUseCase rebuilds the conversation context from the stored turn
// sequence on every request. The derived view is never persisted; only
// summaries are written back.
type ContextUseCase struct {
	conversations ports.ConversationStore
	completion    ports.CompletionService
}

func NewContextUseCase(conversations ports.ConversationStore, completion ports.CompletionService) *ContextUseCase {
	return &ContextUseCase{
		conversations: conversations,
		completion:    completion,
	}
}

func (uc *ContextUseCase) BuildContext(
	ctx context.Context,
	organizationID, conversationID, query string,
) (*domain.ConversationContext, error) {
	if conversationID == "" {
		return deriveContext(nil, query), nil
	}

	turns, err := uc.conversations.ListRecentTurns(ctx, organizationID, conversationID, historyLoadLimit)
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}

	cctx := deriveContext(turns, query)
	if cctx.NeedsSummarization {
		if err := uc.summarize(ctx, organizationID, conversationID, turns, cctx); err != nil {
			return nil, err
		}
	}
	return cctx, nil
}

// deriveContext is the pure part of context assembly: identical turn
// sequences always produce identical contexts.
func deriveContext(turns []domain.Turn, query string) *domain.ConversationContext {
	entities := extractEntities(turns)
	topics := extractTopics(turns)
	references := detectReferences(query)
	resolved, warnings := resolveReferences(query, turns, entities, topics, references)

	return &domain.ConversationContext{
		RecentTurns:        selectWindow(turns, query, references),
		Topics:             topics,
		Entities:           entities,
		QuestionsAsked:     extractQuestions(turns),
		References:         references,
		ResolvedQuery:      resolved,
		Warnings:           warnings,
		NeedsSummarization: len(turns) >= summaryTriggerTurns,
		TurnCount:          len(turns),
	}
}

func extractEntities(turns []domain.Turn) domain.EntitySet {
	var entities domain.EntitySet
	docsSeen := make(map[string]struct{})
	valuesSeen := make(map[string]struct{})
	datesSeen := make(map[string]struct{})

	// Newest first, so each list keeps the most recently mentioned items.
	for i := len(turns) - 1; i >= 0; i-- {
		content := turns[i].Content

		for _, match := range documentPattern.FindAllStringSubmatch(content, -1) {
			name := strings.TrimSpace(match[1])
			if name == "" {
				continue
			}
			if _, ok := docsSeen[name]; ok || len(entities.Documents) >= entityLimit {
				continue
			}
			docsSeen[name] = struct{}{}
			entities.Documents = append(entities.Documents, name)
		}

		for _, match := range valuePattern.FindAllString(content, -1) {
			if _, ok := valuesSeen[match]; ok || len(entities.Values) >= entityLimit {
				continue
			}
			valuesSeen[match] = struct{}{}
			entities.Values = append(entities.Values, match)
		}

		for _, match := range datePattern.FindAllString(content, -1) {
			if _, ok := datesSeen[match]; ok || len(entities.Dates) >= entityLimit {
				continue
			}
			datesSeen[match] = struct{}{}
			entities.Dates = append(entities.Dates, match)
		}
	}
	return entities
}

func extractTopics(turns []domain.Turn) []string {
	seen := make(map[string]struct{})
	topics := make([]string, 0, topicLimit)

	add := func(topic string) {
		topic = strings.TrimSpace(topic)
		if topic == "" || len(topics) >= topicLimit {
			return
		}
		if !strings.ContainsRune(topic, ' ') {
			if _, common := commonTopicWords[strings.ToLower(topic)]; common {
				return
			}
		}
		if _, ok := seen[topic]; ok {
			return
		}
		seen[topic] = struct{}{}
		topics = append(topics, topic)
	}

	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role != domain.RoleUser {
			continue
		}
		for _, match := range topicPattern.FindAllString(turns[i].Content, -1) {
			add(match)
		}
		for _, match := range quotedPattern.FindAllStringSubmatch(turns[i].Content, -1) {
			add(match[1])
		}
	}
	return topics
}

func extractQuestions(turns []domain.Turn) []string {
	questions := make([]string, 0, questionLimit)
	for _, turn := range turns {
		if turn.Role != domain.RoleUser || !strings.ContainsRune(turn.Content, '?') {
			continue
		}
		questions = append(questions, turn.Content)
	}
	if len(questions) > questionLimit {
		questions = questions[len(questions)-questionLimit:]
	}
	return questions
}

func detectReferences(query string) domain.ReferenceSet {
	lower := strings.ToLower(query)
	words := toTokenSet(query)

	var refs domain.ReferenceSet
	for _, term := range pronounTerms {
		if _, ok := words[term]; ok {
			refs.Pronouns = append(refs.Pronouns, term)
		}
	}
	for _, term := range demonstrativeTerms {
		if matchesTerm(lower, words, term) {
			refs.Demonstratives = append(refs.Demonstratives, term)
		}
	}
	for _, term := range vagueTerms {
		if matchesTerm(lower, words, term) {
			refs.VaguePhrases = append(refs.VaguePhrases, term)
		}
	}
	return refs
}

func matchesTerm(lower string, words map[string]struct{}, term string) bool {
	if strings.ContainsRune(term, ' ') {
		return strings.Contains(lower, term)
	}
	_, ok := words[term]
	return ok
}

// resolveReferences substitutes the most recently mentioned entity into an
// annotated query. Resolution failures degrade to a warning, never an error.
func resolveReferences(
	query string,
	turns []domain.Turn,
	entities domain.EntitySet,
	topics []string,
	references domain.ReferenceSet,
) (string, []string) {
	if !references.HasReferences() {
		return query, nil
	}
	if len(turns) == 0 {
		return query, []string{"references detected but no prior turns to resolve against"}
	}

	resolved := query
	var warnings []string

	if len(references.Pronouns) > 0 || len(references.Demonstratives) > 0 {
		target := ""
		switch {
		case len(entities.Documents) > 0:
			target = entities.Documents[0]
		case len(topics) > 0:
			target = topics[0]
		}
		if target != "" {
			resolved = "[Referring to: " + target + "] " + query
		} else {
			warnings = append(warnings, "unresolved reference: no entity found in recent turns")
		}
	}

	if len(references.VaguePhrases) > 0 {
		resolved = "[Previous context: " + recentContextLine(turns) + "] Current question: " + query
	}

	return resolved, warnings
}

func recentContextLine(turns []domain.Turn) string {
	start := len(turns) - 3
	if start < 0 {
		start = 0
	}

	parts := make([]string, 0, 3)
	for _, turn := range turns[start:] {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		switch turn.Role {
		case domain.RoleUser:
			parts = append(parts, "User previously asked: "+content)
		case domain.RoleAssistant:
			parts = append(parts, "Assistant replied: "+firstSentence(content))
		}
	}
	return strings.Join(parts, " | ")
}

// selectWindow picks the recent turns that fit the token budget. The count
// limit depends on the query shape; comparison and analytical queries are
// bounded by the budget alone.
func selectWindow(turns []domain.Turn, query string, references domain.ReferenceSet) []domain.Turn {
	maxCount := 7
	if references.HasReferences() {
		maxCount = 5
	} else {
		switch analyzeQuery(query).Intent {
		case domain.IntentComparison, domain.IntentAnalytical:
			maxCount = 0
		case domain.IntentFactualLookup:
			maxCount = 3
		}
	}
	return slidingWindow(turns, query, contextTokenBudget, maxCount)
}

func slidingWindow(turns []domain.Turn, query string, budget, maxCount int) []domain.Turn {
	used := estimateTokens(query)
	selected := make([]domain.Turn, 0, len(turns))

	for i := len(turns) - 1; i >= 0; i-- {
		if maxCount > 0 && len(selected) >= maxCount {
			break
		}
		cost := estimateTokens(turns[i].Content)
		if used+cost > budget {
			break
		}
		used += cost
		selected = append(selected, turns[i])
	}

	// Restore chronological order.
	for i, j := 0, len(selected)-1; i < j; i, j = i+1, j-1 {
		selected[i], selected[j] = selected[j], selected[i]
	}
	return selected
}

// estimateTokens approximates one token per four characters.
func estimateTokens(text string) int {
	return len(text) / 4
}

func (uc *ContextUseCase) summarize(
	ctx context.Context,
	organizationID, conversationID string,
	turns []domain.Turn,
	cctx *domain.ConversationContext,
) error {
	span := turns[:len(turns)-len(cctx.RecentTurns)]
	if len(span) == 0 {
		span = turns
	}

	turnFrom, turnTo := span[0].UserTurn, span[0].UserTurn
	for _, turn := range span {
		if turn.UserTurn < turnFrom {
			turnFrom = turn.UserTurn
		}
		if turn.UserTurn > turnTo {
			turnTo = turn.UserTurn
		}
	}

	latest, err := uc.conversations.LatestSummary(ctx, organizationID, conversationID)
	if err != nil {
		return fmt.Errorf("load latest summary: %w", err)
	}
	if latest != nil && latest.TurnTo >= turnTo {
		cctx.Summary = latest.Summary
		return nil
	}

	text := ""
	if generated, err := uc.completion.Complete(ctx, summaryPrompt(span)); err == nil {
		text = strings.TrimSpace(generated)
	}
	if text == "" {
		text = extractiveSummary(span)
	}
	if text == "" {
		return nil
	}

	summary := &domain.ConversationSummary{
		ID:             uuid.NewString(),
		OrganizationID: organizationID,
		ConversationID: conversationID,
		TurnFrom:       turnFrom,
		TurnTo:         turnTo,
		Summary:        text,
		CreatedAt:      time.Now().UTC(),
	}
	if err := uc.conversations.SaveSummary(ctx, summary); err != nil {
		return fmt.Errorf("save summary: %w", err)
	}

	cctx.Summary = text
	return nil
}

func summaryPrompt(span []domain.Turn) string {
	lines := make([]string, 0, len(span))
	for _, turn := range span {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", turn.Role, content))
	}

	return fmt.Sprintf(`Summarize the following conversation turns in concise factual form.
Include the main topics discussed, key information provided, and the current context.
Return plain text.

%s`, strings.Join(lines, "\n"))
}

// extractiveSummary is the deterministic fallback when the completion
// service is unavailable: distinct user questions plus the leading sentence
// of each assistant answer.
func extractiveSummary(span []domain.Turn) string {
	seen := make(map[string]struct{})
	var questions, keyPoints []string

	for _, turn := range span {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		switch turn.Role {
		case domain.RoleUser:
			question := truncateRunes(content, 100)
			if _, ok := seen[question]; ok {
				continue
			}
			seen[question] = struct{}{}
			questions = append(questions, question)
		case domain.RoleAssistant:
			keyPoints = append(keyPoints, truncateRunes(firstSentence(content), 100))
		}
	}

	var parts []string
	if len(questions) > 0 {
		parts = append(parts, "User asked about: "+strings.Join(questions, "; "))
	}
	if len(keyPoints) > 0 {
		parts = append(parts, "Key points: "+strings.Join(keyPoints, "; "))
	}
	return strings.Join(parts, ". ")
}
