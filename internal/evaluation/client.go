// Package evaluation calls the external model that scores submitted tasks.
package evaluation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"time"

	"taskeval/internal/apperrors"
)

// Input is what the model is asked to review.
type Input struct {
	Title       string
	Description string
	FileContent string
}

// Result is the validated evaluation triple.
type Result struct {
	Score        int      `json:"score"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

// Evaluator produces an evaluation for a task submission.
type Evaluator interface {
	Evaluate(ctx context.Context, input Input) (*Result, error)
}

const systemPrompt = `You are an expert code reviewer and technical evaluator.
Analyze the provided coding task and provide constructive feedback.

Return your response as a valid JSON object with this exact structure:
{
  "score": <number between 1 and 10>,
  "strengths": ["strength 1", "strength 2", "strength 3"],
  "improvements": ["improvement 1", "improvement 2", "improvement 3"]
}

Evaluation criteria:
- Code quality and best practices
- Problem-solving approach
- Code organization and structure
- Error handling
- Documentation and readability
- Performance considerations

Be specific, constructive, and professional in your feedback.`

type Client struct {
	apiKey      string
	baseURL     string
	model       string
	maxAttempts int
	backoffBase time.Duration
	httpClient  *http.Client
}

func NewClient(apiKey, baseURL, model string, maxAttempts int, backoffBase time.Duration) *Client {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Client{
		apiKey:      apiKey,
		baseURL:     baseURL,
		model:       model,
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Evaluate runs the model call with bounded retries. A response that
// parses as JSON but fails shape validation counts as a failed attempt and
// is retried like a transport error.
func (c *Client) Evaluate(ctx context.Context, input Input) (*Result, error) {
	prompt := buildUserPrompt(input)

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		content, err := c.complete(ctx, prompt)
		if err == nil {
			var result *Result
			result, err = parseResult(content)
			if err == nil {
				return result, nil
			}
		}
		lastErr = err
		log.Printf("[evaluation][attempt %d/%d][err] %v", attempt, c.maxAttempts, err)
		if attempt < c.maxAttempts {
			time.Sleep(c.backoffBase * time.Duration(attempt))
		}
	}
	return nil, apperrors.Evaluation(
		fmt.Sprintf("evaluation failed after %d attempts", c.maxAttempts), lastErr)
}

func (c *Client) complete(ctx context.Context, userPrompt string) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:    0.7,
		MaxTokens:      1000,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("evaluation request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("evaluation provider status %d: %s", resp.StatusCode, body)
	}

	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("no response content from model")
	}
	return cr.Choices[0].Message.Content, nil
}

func buildUserPrompt(input Input) string {
	prompt := fmt.Sprintf("Task Title: %s\n\nTask Description:\n%s", input.Title, input.Description)
	if input.FileContent != "" {
		prompt += fmt.Sprintf("\n\nSubmitted Code:\n```\n%s\n```", input.FileContent)
	}
	return prompt
}

// parseResult enforces the full shape before anything is trusted: integer
// score in [1,10], both lists present and non-empty with string elements.
func parseResult(content string) (*Result, error) {
	var raw struct {
		Score        float64  `json:"score"`
		Strengths    []string `json:"strengths"`
		Improvements []string `json:"improvements"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("invalid response format: %w", err)
	}
	if raw.Score != math.Trunc(raw.Score) || raw.Score < 1 || raw.Score > 10 {
		return nil, fmt.Errorf("invalid score: must be an integer between 1 and 10")
	}
	if len(raw.Strengths) == 0 {
		return nil, fmt.Errorf("invalid strengths: must be a non-empty array")
	}
	if len(raw.Improvements) == 0 {
		return nil, fmt.Errorf("invalid improvements: must be a non-empty array")
	}
	return &Result{
		Score:        int(raw.Score),
		Strengths:    raw.Strengths,
		Improvements: raw.Improvements,
	}, nil
}
