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

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiClient is the adapter for the multi-part/candidate wire format.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGeminiClient creates a Gemini adapter. baseURL overrides the vendor
// endpoint when non-empty (used by tests).
func NewGeminiClient(apiKey, model, baseURL string, logger *slog.Logger) *GeminiClient {
	if logger == nil {
		logger = slog.Default()
	}
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	// Model replies can take a while before headers arrive; allow more
	// headroom than the shared default.
	t := httpkit.NewTransport()
	t.ResponseHeaderTimeout = 120 * time.Second

	return &GeminiClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		logger:  logger.With("provider", "gemini"),
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(0), // ctx deadlines control cancellation
			httpkit.WithTransport(t),
		),
	}
}

// Gemini request/response types

type geminiRequest struct {
	Contents          []geminiContent  `json:"contents"`
	SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
	Tools             []geminiTool     `json:"tools,omitempty"`
	GenerationConfig  *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text         string              `json:"text,omitempty"`
	FunctionCall *geminiFunctionCall `json:"functionCall,omitempty"`
}

type geminiFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type geminiTool struct {
	FunctionDeclarations []geminiFunctionDecl `json:"functionDeclarations"`
}

type geminiFunctionDecl struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type geminiGenConfig struct {
	ResponseMimeType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// GenerateContent sends the prompt and returns the canonical response.
func (c *GeminiClient) GenerateContent(ctx context.Context, prompt, systemInstruction string, tools []ToolDecl) (*Response, error) {
	req := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: prompt}},
		}},
	}
	if systemInstruction != "" {
		req.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: systemInstruction}},
		}
	}
	if decls := convertToolsToGemini(tools); len(decls) > 0 {
		req.Tools = []geminiTool{{FunctionDeclarations: decls}}
	}

	var resp geminiResponse
	if err := c.post(ctx, req, &resp); err != nil {
		return nil, err
	}

	return convertFromGemini(&resp), nil
}

// GenerateJSON requests a structured reply and returns the raw JSON value.
func (c *GeminiClient) GenerateJSON(ctx context.Context, prompt string, schema map[string]any) (json.RawMessage, error) {
	req := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: prompt}},
		}},
		GenerationConfig: &geminiGenConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   schema,
		},
	}

	var resp geminiResponse
	if err := c.post(ctx, req, &resp); err != nil {
		return nil, err
	}

	text := convertFromGemini(&resp).TextParts()
	if !json.Valid([]byte(text)) {
		return nil, fmt.Errorf("gemini JSON mode returned non-JSON content")
	}
	return json.RawMessage(text), nil
}

func (c *GeminiClient) post(ctx context.Context, req geminiRequest, out *geminiResponse) error {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	c.logger.Log(ctx, LevelTrace, "request payload", "json", string(jsonData))

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// A failed response body is never interpreted, only surfaced.
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

// convertToolsToGemini translates declarations 1:1 into the vendor's
// function-declaration schema.
func convertToolsToGemini(tools []ToolDecl) []geminiFunctionDecl {
	if len(tools) == 0 {
		return nil
	}
	decls := make([]geminiFunctionDecl, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, geminiFunctionDecl{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}
	return decls
}

// convertFromGemini descends the fixed path (first candidate → content →
// parts) and returns those parts verbatim, preserving wire order.
func convertFromGemini(resp *geminiResponse) *Response {
	out := &Response{}
	if len(resp.Candidates) == 0 {
		return out
	}
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.FunctionCall != nil {
			out.Parts = append(out.Parts, Part{Call: &FunctionCall{
				Name: p.FunctionCall.Name,
				Args: p.FunctionCall.Args,
			}})
			continue
		}
		out.Parts = append(out.Parts, Part{Text: p.Text})
	}
	return out
}
