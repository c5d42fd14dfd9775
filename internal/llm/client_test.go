package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "senseibot/pkg/logx"
)

func completionJSON(content string) ChatCompletionResponse {
	return ChatCompletionResponse{
		ID:     "chatcmpl-1",
		Object: "chat.completion",
		Model:  "test-model",
		Choices: []Choice{
			{Message: ChoiceMessage{Role: RoleAssistant, Content: content}},
		},
	}
}

func TestAskExtractsTaggedAnswer(t *testing.T) {
	var gotReq ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(
			completionJSON("thinking...\n<llm-response>Gradient descent minimizes loss.</llm-response>\ndone")))
	}))
	defer server.Close()

	client := NewClient(Config{
		BaseURL: server.URL,
		APIKey:  "secret",
		Model:   "test-model",
	}, logx.Nop())
	defer client.Close()

	got, err := client.Ask(context.Background(), "what is gradient descent?")
	require.NoError(t, err)
	assert.Equal(t, "Gradient descent minimizes loss.\n\n— test-model", got)

	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, RoleSystem, gotReq.Messages[0].Role)
	assert.Equal(t, RoleUser, gotReq.Messages[1].Role)
	assert.Equal(t, "what is gradient descent?", gotReq.Messages[1].Content)
}

func TestAskFallsBackToWholeContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(completionJSON("  plain answer  ")))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Model: "m"}, logx.Nop())
	defer client.Close()

	got, err := client.Ask(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "plain answer\n\n— m", got)
}

func TestAskRetriesServerErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(
			completionJSON("<llm-response>ok</llm-response>")))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Model: "m", RetryMax: 3}, logx.Nop())
	defer client.Close()

	got, err := client.Ask(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "ok\n\n— m", got)
	assert.Equal(t, 3, attempts)
}

func TestAskDoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Model: "m", RetryMax: 3}, logx.Nop())
	defer client.Close()

	_, err := client.Ask(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestSystemPromptFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.txt")
	require.NoError(t, os.WriteFile(path, []byte("custom prompt"), 0o644))

	var sawSystem string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		sawSystem = req.Messages[0].Content
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(completionJSON("<llm-response>x</llm-response>")))
	}))
	defer server.Close()

	client := NewClient(Config{
		BaseURL:          server.URL,
		Model:            "m",
		SystemPromptPath: path,
	}, logx.Nop())
	defer client.Close()

	_, err := client.Ask(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "custom prompt", sawSystem)
}

func TestExtractResponse(t *testing.T) {
	assert.Equal(t, "inner", extractResponse("<llm-response>inner</llm-response>"))
	assert.Equal(t, "multi\nline", extractResponse("pre <llm-response>\nmulti\nline\n</llm-response> post"))
	assert.Equal(t, "no tags", extractResponse("  no tags  "))
	assert.Equal(t, "", extractResponse("   "))
}
