package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shaiso/Remedy/internal/domain"
	"github.com/shaiso/Remedy/internal/telemetry"
)

const defaultHTTPTimeout = 30 * time.Second

// HTTPProcessor — processor для task типа "http".
//
// Выполняет HTTP-запрос по конфигурации из task.Payload. Любой ответ
// с кодом >= 400 — неудача; текст ошибки ("HTTP 503: ...") уходит
// запросом в базу знаний.
//
// Payload:
//   - method (string): HTTP-метод (GET, POST, PUT, DELETE). Default: GET
//   - url (string): URL для запроса (обязательно)
//   - headers (map[string]any): HTTP-заголовки
//   - body (any): тело запроса (сериализуется в JSON)
//   - timeout_sec (number): таймаут запроса в секундах. Default: 30
type HTTPProcessor struct {
	// Client — опционально; если nil, используется http.DefaultClient.
	Client *http.Client
}

// Process выполняет HTTP-запрос.
func (p *HTTPProcessor) Process(ctx context.Context, task *domain.Task) error {
	method := getString(task.Payload, "method", http.MethodGet)
	url := getString(task.Payload, "url", "")
	if url == "" {
		return fmt.Errorf("%w: url is required", ErrHTTPRequest)
	}

	timeout := time.Duration(getFloat(task.Payload, "timeout_sec", 0) * float64(time.Second))
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var bodyReader io.Reader
	if body, ok := task.Payload["body"]; ok && body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: marshal body: %v", ErrHTTPRequest, err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrHTTPRequest, err)
	}

	setHeaders(req, task.Payload)
	if bodyReader != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHTTPRequest, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrHTTPRequest, err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	telemetry.FromContext(ctx).Debug("http task completed",
		"method", method,
		"status_code", resp.StatusCode,
	)
	return nil
}

// getString извлекает строку из map с default значением.
func getString(m map[string]any, key, defaultVal string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return defaultVal
}

// setHeaders устанавливает заголовки из payload.
func setHeaders(req *http.Request, payload map[string]any) {
	switch h := payload["headers"].(type) {
	case map[string]any:
		for key, val := range h {
			if s, ok := val.(string); ok {
				req.Header.Set(key, s)
			}
		}
	case map[string]string:
		for key, val := range h {
			req.Header.Set(key, val)
		}
	}
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
