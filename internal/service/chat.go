package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/crestbank/teller/internal/conversation"
	"github.com/crestbank/teller/internal/domain"
	"github.com/crestbank/teller/internal/telemetry"
)

// DefaultTopK is the number of chunks retrieved per query.
const DefaultTopK = 8

const (
	// missingCredentialAnswer is returned verbatim when no language model
	// credential is configured. The turn is still recorded.
	missingCredentialAnswer = "No OpenAI API key found. Please set it in your environment variables."

	// recoveryAnswer is returned verbatim when generation fails after a
	// successful retrieval.
	recoveryAnswer = "I'm having trouble generating a response. Please try again later."
)

// promptArtifacts are phrases that mark a response line as leaked prompt
// scaffolding; matching lines are dropped during post-processing.
var promptArtifacts = []string{
	"styling instructions:",
	"ai:",
	"user:",
	"context:",
	"example format",
	"respond naturally",
	"choose the best format",
}

// ConversationStore persists conversation turns.
type ConversationStore interface {
	AppendTurn(ctx context.Context, conversationID string, turn domain.Turn) error
	ListTurns(ctx context.Context, conversationID string) ([]domain.Turn, error)
}

// Completer generates a free-text completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ChatResult is one answered query with the chunk citations behind it.
type ChatResult struct {
	Answer  string
	Sources []map[string]interface{}
}

// ChatService answers product questions over the vector index, carrying
// per-conversation history into each prompt. Requests within one
// conversation are serialized; different conversations proceed in parallel.
type ChatService struct {
	chunks    ChunkStore
	convs     ConversationStore
	embedder  EmbeddingClient
	completer Completer
	locks     *conversation.Locker
	topK      int

	metaMu sync.Mutex
	meta   *domain.IndexMeta
}

// NewChatService creates a ChatService. completer may be nil when no
// language model credential is configured; queries then receive a fixed
// notice instead of a generated answer.
func NewChatService(chunks ChunkStore, convs ConversationStore, embedder EmbeddingClient, completer Completer) *ChatService {
	return &ChatService{
		chunks:    chunks,
		convs:     convs,
		embedder:  embedder,
		completer: completer,
		locks:     conversation.NewLocker(),
		topK:      DefaultTopK,
	}
}

// Answer handles one query within a conversation: retrieve the closest
// chunks, generate an answer grounded in them, record the turn, and return
// the answer with its sources. The turn is recorded even when generation
// falls back to a fixed notice.
func (s *ChatService) Answer(ctx context.Context, conversationID, query string) (*ChatResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if conversationID == "" {
		return nil, domain.ErrEmptyConversation
	}
	if s.embedder == nil {
		return nil, domain.ErrMissingEmbedder
	}

	if err := s.ensureIndexCompatible(ctx); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "chat.answer", telemetry.SpanAttributes{
		ConversationID: conversationID,
		Operation:      "answer",
	})
	defer span.End()

	unlock := s.locks.Lock(conversationID)
	defer unlock()

	history, err := s.convs.ListTurns(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	queryEmbedding, err := s.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := s.chunks.NearestNeighbors(ctx, queryEmbedding, s.topK)
	if err != nil {
		err = fmt.Errorf("retrieval failed: %w", err)
		span.SetError(err)
		return nil, err
	}
	log.Printf("Retrieved %d chunks for conversation %s", len(results), conversationID)

	contextText := joinChunkTexts(results)
	sources := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		sources = append(sources, r.Chunk.Metadata())
	}

	answer := s.generate(ctx, history, query, contextText)

	// The answer exists; the turn is recorded even if the caller has
	// since given up waiting.
	turn := domain.Turn{UserText: query, AIText: answer, CreatedAt: time.Now().UTC()}
	if err := s.convs.AppendTurn(context.WithoutCancel(ctx), conversationID, turn); err != nil {
		return nil, fmt.Errorf("failed to record turn: %w", err)
	}

	return &ChatResult{Answer: answer, Sources: sources}, nil
}

// ensureIndexCompatible checks the persisted index identity against the
// configured embedding model. The identity is read once and cached; load
// failures (index not built yet) are not cached, so a build that completes
// while the server is running is picked up on the next request. A mismatch
// makes every request fail until the index is rebuilt; silently querying
// across models would return garbage rankings.
func (s *ChatService) ensureIndexCompatible(ctx context.Context) error {
	s.metaMu.Lock()
	defer s.metaMu.Unlock()

	if s.meta == nil {
		meta, err := s.chunks.GetIndexMeta(ctx)
		if err != nil {
			return err
		}
		s.meta = meta
		log.Printf("Index loaded: %d chunks, model %s", meta.ChunkCount, meta.EmbeddingModel)
	}

	if s.meta.EmbeddingModel != s.embedder.Model() {
		return fmt.Errorf("%w: index built with %s, queries embed with %s",
			domain.ErrModelMismatch, s.meta.EmbeddingModel, s.embedder.Model())
	}
	return nil
}

func (s *ChatService) generate(ctx context.Context, history []domain.Turn, query, contextText string) string {
	if s.completer == nil {
		return missingCredentialAnswer
	}

	prompt := buildPrompt(history, query, contextText)
	raw, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		log.Printf("Generation failed: %v", err)
		return recoveryAnswer
	}

	return cleanResponse(raw)
}

// buildPrompt assembles the generation prompt: prior turns, the new query,
// the retrieved context, and fixed plain-text formatting instructions.
func buildPrompt(history []domain.Turn, query, contextText string) string {
	var b strings.Builder
	for _, turn := range history {
		fmt.Fprintf(&b, "User: %s\nAI: %s\n", turn.UserText, turn.AIText)
	}
	fmt.Fprintf(&b, "User: %s\n\n", query)
	fmt.Fprintf(&b, "Context (from Crest Bank documents):\n%s\n\n", contextText)
	b.WriteString("AI: You are a helpful Crest Bank product assistant. Provide clear, structured responses about Crest Bank products and services.\n\n")
	b.WriteString("IMPORTANT FORMATTING RULES:\n")
	b.WriteString("- Format responses naturally with paragraphs, bullet points, or numbered lists when it improves clarity.\n")
	b.WriteString("- Avoid any Markdown symbols such as *, **, _, or +.\n")
	b.WriteString("- Present product names followed by a dash and description.\n")
	b.WriteString("- Use a new line for each product or concept.\n")
	b.WriteString("- Be concise and informative.\n")
	b.WriteString("- Only mention products that are actually available based on the provided context.\n")
	b.WriteString("- Respond in clean, readable plain text.\n")
	return b.String()
}

// cleanResponse strips leaked prompt scaffolding and Markdown symbols from a
// generated answer, keeping paragraph and list structure intact.
func cleanResponse(response string) string {
	var cleaned []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if containsPromptArtifact(line) {
			continue
		}
		line = strings.NewReplacer("*", "", "_", "", "+", "").Replace(line)
		cleaned = append(cleaned, line)
	}
	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}

func containsPromptArtifact(line string) bool {
	lower := strings.ToLower(line)
	for _, phrase := range promptArtifacts {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func joinChunkTexts(results []domain.SearchResult) string {
	texts := make([]string, 0, len(results))
	for _, r := range results {
		texts = append(texts, r.Chunk.Text)
	}
	return strings.Join(texts, "\n")
}
