// Package httprequest implements the built-in HTTP request action.
package httprequest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/botweaver/botweaver/pkg/models"
	"github.com/botweaver/botweaver/pkg/protocol"
	"github.com/botweaver/botweaver/pkg/template"
)

const defaultTimeout = 30 * time.Second

type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) ID() string {
	return "http_request"
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	if config == nil {
		config = map[string]any{}
	}

	url, _ := config["url"].(string)
	if url == "" {
		return nil, fmt.Errorf("http_request action requires a url")
	}

	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodGet
	}

	body, _ := config["body"].(string)

	headers := make(map[string]string)
	if headersConfig, ok := config["headers"].(map[string]any); ok {
		for key, value := range headersConfig {
			if str, ok := value.(string); ok {
				headers[key] = str
			}
		}
	}

	timeout := defaultTimeout
	if seconds, ok := config["timeout"].(float64); ok && seconds > 0 {
		timeout = time.Duration(seconds * float64(time.Second))
	}

	retries := 1
	if attempts, ok := config["retries"].(float64); ok && attempts >= 1 {
		retries = int(attempts)
	}

	return &Action{
		method:  strings.ToUpper(method),
		url:     url,
		headers: headers,
		body:    body,
		timeout: timeout,
		retries: retries,
		client:  &http.Client{},
	}, nil
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Request URL. Supports templating.",
			},
			"method": map[string]any{
				"type":    "string",
				"default": "GET",
				"enum":    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD"},
			},
			"headers": map[string]any{
				"type":        "object",
				"description": "Request headers as string key-value pairs.",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Request body. Supports templating.",
			},
			"timeout": map[string]any{
				"type":        "number",
				"description": "Request timeout in seconds.",
				"default":     30,
			},
			"retries": map[string]any{
				"type":        "number",
				"description": "Attempts before giving up. Server errors are retried.",
				"default":     1,
			},
		},
		"required": []any{"url"},
	}
}

type Action struct {
	method  string
	url     string
	headers map[string]string
	body    string
	timeout time.Duration
	retries int
	client  *http.Client
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "http_request")

	url, err := renderString(a.url, executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render url: %w", err)
	}

	body, err := renderString(a.body, executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render body: %w", err)
	}

	var (
		resp    *http.Response
		lastErr error
	)

	for attempt := 1; attempt <= a.retries; attempt++ {
		if attempt > 1 {
			logger.InfoContext(ctx, "Retrying request",
				"attempt", attempt,
				"retries", a.retries)
		}

		resp, lastErr = a.do(ctx, url, body)
		if lastErr != nil {
			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError && attempt < a.retries {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error (status %d)", resp.StatusCode)
			resp = nil

			continue
		}

		break
	}

	if resp == nil {
		return nil, fmt.Errorf("request failed after %d attempts: %w", a.retries, lastErr)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	// Non-JSON responses come back as a plain string.
	var decoded any
	if err := json.Unmarshal(responseBody, &decoded); err != nil {
		decoded = string(responseBody)
	}

	logger.InfoContext(ctx, "Request completed",
		"method", a.method,
		"url", url,
		"status_code", resp.StatusCode)

	return map[string]any{
		"status_code": resp.StatusCode,
		"body":        decoded,
		"headers":     flattenHeaders(resp.Header),
	}, nil
}

func (a *Action) do(ctx context.Context, url, body string) (*http.Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(reqCtx, a.method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range a.headers {
		req.Header.Set(key, value)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	return resp, nil
}

func renderString(input string, executionCtx models.ExecutionContext) (string, error) {
	if !template.NeedsTemplating(input) {
		return input, nil
	}

	result, err := template.RenderWithContext(input, executionCtx)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%v", result), nil
}

func flattenHeaders(headers http.Header) map[string]any {
	flat := make(map[string]any, len(headers))
	for key := range headers {
		flat[key] = headers.Get(key)
	}

	return flat
}
