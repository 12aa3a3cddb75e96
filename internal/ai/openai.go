package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/natfisher/daybook/internal/httpkit"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient is the adapter for the message/tool-call wire format.
type OpenAIClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOpenAIClient creates an OpenAI adapter. baseURL overrides the vendor
// endpoint when non-empty (used by tests).
func NewOpenAIClient(apiKey, model, baseURL string, logger *slog.Logger) *OpenAIClient {
	if logger == nil {
		logger = slog.Default()
	}
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	t := httpkit.NewTransport()
	t.ResponseHeaderTimeout = 120 * time.Second

	return &OpenAIClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		logger:  logger.With("provider", "openai"),
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(0),
			httpkit.WithTransport(t),
		),
	}
}

// OpenAI request/response types

type openaiRequest struct {
	Model          string          `json:"model"`
	Messages       []openaiMessage `json:"messages"`
	Temperature    float64         `json:"temperature"`
	Tools          []openaiTool    `json:"tools,omitempty"`
	ToolChoice     string          `json:"tool_choice,omitempty"`
	ResponseFormat *openaiRespFmt  `json:"response_format,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiTool struct {
	Type     string             `json:"type"`
	Function openaiFunctionDecl `json:"function"`
}

type openaiFunctionDecl struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type openaiRespFmt struct {
	Type string `json:"type"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content   string           `json:"content"`
			ToolCalls []openaiToolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

type openaiToolCall struct {
	ID       string `json:"id"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"` // embedded JSON string
	} `json:"function"`
}

// GenerateContent sends the prompt and normalizes the reply into the
// canonical part list.
func (c *OpenAIClient) GenerateContent(ctx context.Context, prompt, systemInstruction string, tools []ToolDecl) (*Response, error) {
	req := openaiRequest{
		Model:       c.model,
		Temperature: 0.7,
	}
	if systemInstruction != "" {
		req.Messages = append(req.Messages, openaiMessage{Role: "system", Content: systemInstruction})
	}
	req.Messages = append(req.Messages, openaiMessage{Role: "user", Content: prompt})

	if len(tools) > 0 {
		for _, t := range tools {
			req.Tools = append(req.Tools, openaiTool{
				Type: "function",
				Function: openaiFunctionDecl{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			})
		}
		req.ToolChoice = "auto"
	}

	var resp openaiResponse
	if err := c.post(ctx, req, &resp); err != nil {
		return nil, err
	}

	return c.convertFromOpenAI(&resp)
}

// GenerateJSON requests a structured reply via response_format json_object.
func (c *OpenAIClient) GenerateJSON(ctx context.Context, prompt string, schema map[string]any) (json.RawMessage, error) {
	// The vendor's json_object mode takes no schema; embed it in the prompt
	// so the model still sees the expected shape.
	if schema != nil {
		schemaJSON, err := json.Marshal(schema)
		if err != nil {
			return nil, fmt.Errorf("marshal schema: %w", err)
		}
		prompt = fmt.Sprintf("%s\n\nRespond with a JSON object matching this schema:\n%s", prompt, schemaJSON)
	}

	req := openaiRequest{
		Model:          c.model,
		Temperature:    0.7,
		Messages:       []openaiMessage{{Role: "user", Content: prompt}},
		ResponseFormat: &openaiRespFmt{Type: "json_object"},
	}

	var resp openaiResponse
	if err := c.post(ctx, req, &resp); err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}
	content := resp.Choices[0].Message.Content
	if !json.Valid([]byte(content)) {
		return nil, fmt.Errorf("openai JSON mode returned non-JSON content")
	}
	return json.RawMessage(content), nil
}

func (c *OpenAIClient) post(ctx context.Context, req openaiRequest, out *openaiResponse) error {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	c.logger.Log(ctx, LevelTrace, "request payload", "json", string(jsonData))

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := httpkit.ReadErrorBody(resp.Body, 4096)
		c.logger.Error("API error", "status", resp.StatusCode, "body", snippet)
		return &HTTPError{Status: resp.StatusCode, StatusText: resp.Status}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// convertFromOpenAI normalizes the vendor reply: tool-call entries become
// function-invocation parts (arguments parsed from the embedded JSON
// string), otherwise the message content becomes a single text part. A
// malformed argument string drops only that invocation; the typed error is
// returned only when nothing usable remains.
func (c *OpenAIClient) convertFromOpenAI(resp *openaiResponse) (*Response, error) {
	out := &Response{}
	if len(resp.Choices) == 0 {
		return out, nil
	}
	msg := resp.Choices[0].Message

	if len(msg.ToolCalls) == 0 {
		out.Parts = append(out.Parts, Part{Text: msg.Content})
		return out, nil
	}

	// Any free text travels ahead of the calls, matching wire order.
	if msg.Content != "" {
		out.Parts = append(out.Parts, Part{Text: msg.Content})
	}

	var lastErr *MalformedToolArgumentsError
	for _, tc := range msg.ToolCalls {
		var args map[string]any
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			lastErr = &MalformedToolArgumentsError{Call: tc.Function.Name, Raw: tc.Function.Arguments}
			c.logger.Warn("dropping tool call with malformed arguments",
				"call", tc.Function.Name, "error", err)
			continue
		}
		out.Parts = append(out.Parts, Part{Call: &FunctionCall{
			Name: tc.Function.Name,
			Args: args,
		}})
	}

	if len(out.Parts) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}
