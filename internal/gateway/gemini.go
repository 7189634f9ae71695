package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"google.golang.org/genai"
)

type geminiBackend struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	once   sync.Once
	client *genai.Client
	err    error
}

func newGeminiBackend(apiKey, baseURL string, httpClient *http.Client) *geminiBackend {
	return &geminiBackend{apiKey: apiKey, baseURL: baseURL, httpClient: httpClient}
}

func (b *geminiBackend) name() string { return "gemini" }

func (b *geminiBackend) hasCredentials() bool { return b.apiKey != "" }

// genai.NewClient takes a context, so the client is built on first use.
func (b *geminiBackend) getClient(ctx context.Context) (*genai.Client, error) {
	b.once.Do(func() {
		cfg := &genai.ClientConfig{
			APIKey:     b.apiKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: b.httpClient,
		}
		if b.baseURL != "" {
			cfg.HTTPOptions = genai.HTTPOptions{BaseURL: b.baseURL}
		}
		b.client, b.err = genai.NewClient(ctx, cfg)
	})
	return b.client, b.err
}

func (b *geminiBackend) call(ctx context.Context, req Request) (string, error) {
	client, err := b.getClient(ctx)
	if err != nil {
		return "", fmt.Errorf("create genai client: %w", err)
	}

	turns := req.Turns()
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := genai.Role(genai.RoleUser)
		if t.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Content, role))
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Options.Temperature)),
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.Options.JSONMode {
		cfg.ResponseMIMEType = "application/json"
	}

	res, err := client.Models.GenerateContent(ctx, req.Options.Model, contents, cfg)
	if err != nil {
		return "", err
	}
	return res.Text(), nil
}

func (b *geminiBackend) classify(err error) *Error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &Error{Kind: KindUpstreamHTTP, Status: apiErr.Code, BodyExcerpt: excerpt(apiErr.Message), Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return &Error{Kind: KindUpstreamHTTP, Status: apiErrPtr.Code, BodyExcerpt: excerpt(apiErrPtr.Message), Err: err}
	}
	return &Error{Kind: KindNetwork, Err: err}
}
