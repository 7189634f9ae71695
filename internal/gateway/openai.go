package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

type openAIBackend struct {
	client *openai.Client
	apiKey string
}

func newOpenAIBackend(apiKey, baseURL string, httpClient *http.Client) *openAIBackend {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(httpClient),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &openAIBackend{client: &client, apiKey: apiKey}
}

func (b *openAIBackend) name() string { return "openai" }

func (b *openAIBackend) hasCredentials() bool { return b.apiKey != "" }

func (b *openAIBackend) call(ctx context.Context, req Request) (string, error) {
	turns := req.Turns()
	items := make([]responses.ResponseInputItemUnionParam, 0, len(turns))
	for _, t := range turns {
		role := responses.EasyInputMessageRoleUser
		if t.Role == RoleAssistant {
			role = responses.EasyInputMessageRoleAssistant
		}
		items = append(items, responses.ResponseInputItemParamOfMessage(t.Content, role))
	}

	params := responses.ResponseNewParams{
		Model:        req.Options.Model,
		Instructions: openai.String(req.SystemPrompt),
		Temperature:  openai.Float(req.Options.Temperature),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: items,
		},
	}
	if req.Options.JSONMode {
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
			},
		}
	}

	resp, err := b.client.Responses.New(ctx, params)
	if err != nil {
		return "", err
	}
	return resp.OutputText(), nil
}

func (b *openAIBackend) classify(err error) *Error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &Error{
			Kind:        KindUpstreamHTTP,
			Status:      apiErr.StatusCode,
			BodyExcerpt: excerpt(apiErr.RawJSON()),
			Err:         err,
		}
	}
	return &Error{Kind: KindNetwork, Err: err}
}
