//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crestbank/teller/internal/api/handlers"
	"github.com/crestbank/teller/internal/contentstore"
	"github.com/crestbank/teller/internal/repository"
	"github.com/crestbank/teller/internal/server"
	"github.com/crestbank/teller/internal/service"
	"github.com/crestbank/teller/internal/storage"
	"github.com/crestbank/teller/internal/testutil"
)

const embeddingDims = 1536

// PipelineEnv wires the full stack against real containers: pgvector for the
// index and conversations, RustFS for the artifact mirror. Embedding and
// generation are deterministic fakes so no external credential is needed.
type PipelineEnv struct {
	T   *testing.T
	Ctx context.Context

	PostgresC *testutil.PostgresContainer
	RustFSC   *testutil.RustFSContainer
	Pool      *pgxpool.Pool
	S3Client  *storage.S3Client

	DataDir string
	Store   *contentstore.Store

	Embedder  *fakeEmbedder
	Completer *fakeCompleter

	Server     *httptest.Server
	HTTPClient *http.Client
}

func SetupPipelineEnv(t *testing.T) *PipelineEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "teller-artifacts",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	dataDir := t.TempDir()
	manifestRepo := repository.NewManifestRepository(pool)
	store, err := contentstore.New(dataDir, manifestRepo)
	if err != nil {
		t.Fatalf("failed to create content store: %v", err)
	}
	store = store.WithMirror(&s3Mirror{client: s3Client})

	embedder := &fakeEmbedder{}
	completer := &fakeCompleter{answer: "The Everyday Saver account earns bonus interest on deposits."}

	chatSvc := service.NewChatService(
		repository.NewChunkRepository(pool),
		repository.NewConversationRepository(pool),
		embedder,
		completer,
	)

	router := server.NewRouter(server.RouterConfig{
		ChatHandler: handlers.NewChatHandler(chatSvc),
	})
	srv := httptest.NewServer(router)

	return &PipelineEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		RustFSC:    s3C,
		Pool:       pool,
		S3Client:   s3Client,
		DataDir:    dataDir,
		Store:      store,
		Embedder:   embedder,
		Completer:  completer,
		Server:     srv,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *PipelineEnv) Cleanup() {
	if e.Server != nil {
		e.Server.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// ChatResponse mirrors the /chat response body.
type ChatResponse struct {
	Answer  string                   `json:"answer"`
	Sources []map[string]interface{} `json:"sources"`
}

// PostChat sends one chat request and decodes the response.
func (e *PipelineEnv) PostChat(conversationID, query string) (int, *ChatResponse, error) {
	body, err := json.Marshal(map[string]string{
		"conversation_id": conversationID,
		"query":           query,
	})
	if err != nil {
		return 0, nil, err
	}

	resp, err := e.HTTPClient.Post(e.Server.URL+"/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, &chatResp, nil
}

// s3Mirror adapts the S3 client to the content store's mirror interface.
type s3Mirror struct {
	client *storage.S3Client
}

func (m *s3Mirror) PutObject(ctx context.Context, key, contentType string, body []byte) error {
	return m.client.PutObject(ctx, key, contentType, bytes.NewReader(body))
}

// fakeEmbedder embeds text as a normalized bag-of-words vector, so texts
// sharing words land close under cosine distance. Deterministic.
type fakeEmbedder struct{}

func (f *fakeEmbedder) Model() string   { return "fake-bow-v1" }
func (f *fakeEmbedder) Dimensions() int { return embeddingDims }

func (f *fakeEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, embeddingDims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?:;\"'()")
		if word == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%embeddingDims]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}

// fakeCompleter returns a fixed answer and records every prompt it saw.
type fakeCompleter struct {
	mu      sync.Mutex
	answer  string
	prompts []string
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.answer, nil
}

func (f *fakeCompleter) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}
