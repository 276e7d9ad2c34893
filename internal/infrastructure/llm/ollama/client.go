package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kazaneza/openchat/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
}

// New builds a client for one Ollama instance. The timeout bounds a whole
// call including the streamed response body.
func New(baseURL, genModel, embedModel string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type Embedder struct {
	client   *Client
	executor *resilience.Executor
}

func NewEmbedder(client *Client, executor *resilience.Executor) *Embedder {
	return &Embedder{client: client, executor: executor}
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	call := func(callCtx context.Context) error {
		request := map[string]any{
			"model": e.client.embedModel,
			"input": []string{text},
		}
		var response struct {
			Embeddings [][]float32 `json:"embeddings"`
		}
		if err := e.client.postJSON(callCtx, "/api/embed", request, &response, "embed"); err != nil {
			return err
		}
		if len(response.Embeddings) == 0 || len(response.Embeddings[0]) == 0 {
			return fmt.Errorf("empty embedding result")
		}
		vector = response.Embeddings[0]
		return nil
	}

	var err error
	if e.executor != nil {
		err = e.executor.Execute(ctx, "ollama.embed", call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapTemporaryIfNeeded("ollama embed", err)
	}
	return vector, nil
}

type Completer struct {
	client   *Client
	executor *resilience.Executor
}

func NewCompleter(client *Client, executor *resilience.Executor) *Completer {
	return &Completer{client: client, executor: executor}
}

func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	var out string
	call := func(callCtx context.Context) error {
		text, err := c.client.generateText(callCtx, prompt)
		if err != nil {
			return err
		}
		out = text
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama.generate", call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapTemporaryIfNeeded("ollama generate", err)
	}
	return out, nil
}

// CompleteStream emits response fragments through onDelta as they arrive.
// Once a fragment has reached the caller the call is never retried, since a
// restarted stream would duplicate already delivered text.
func (c *Completer) CompleteStream(ctx context.Context, prompt string, onDelta func(delta string) error) (string, error) {
	var full strings.Builder
	emitted := false

	call := func(callCtx context.Context) error {
		full.Reset()
		err := c.client.generateStream(callCtx, prompt, func(delta string) error {
			emitted = true
			full.WriteString(delta)
			return onDelta(delta)
		})
		if err != nil && emitted {
			return &streamInterruptedError{err: err}
		}
		return err
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama.generate_stream", call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapTemporaryIfNeeded("ollama generate_stream", err)
	}
	return strings.TrimSpace(full.String()), nil
}

func (c *Client) generateText(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}
