package taskstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shaiso/Remedy/internal/domain"
)

const defaultTimeout = 30 * time.Second

// Параметры поиска в базе знаний по умолчанию.
const (
	DefaultThreshold = 0.7
	DefaultLimit     = 10
)

// --- Request types ---

type reportErrorRequest struct {
	AgentID      string `json:"agentId"`
	ErrorMessage string `json:"errorMessage"`
}

type searchRequest struct {
	Query     string  `json:"query"`
	Threshold float64 `json:"threshold"`
	Limit     int     `json:"limit"`
}

type solutionAppliedRequest struct {
	AgentID    string `json:"agentId"`
	SolutionID string `json:"solutionId"`
	Success    bool   `json:"success"`
}

type updateStatusRequest struct {
	AgentID   string            `json:"agentId"`
	NewStatus domain.TaskStatus `json:"newStatus"`
}

// --- Client ---

// Client — HTTP-клиент task store и базы знаний.
//
// Клиент не делает retry: повторы обеспечивает очередь (requeue).
type Client struct {
	baseURL    string
	agentID    string
	apiKey     string
	httpClient *http.Client
}

// Config — конфигурация Client.
type Config struct {
	// BaseURL — адрес API, например https://api.example.com.
	BaseURL string

	// AgentID — идентификатор агента, передаётся в отчётах.
	AgentID string

	// APIKey — bearer-токен агента.
	APIKey string

	// Timeout — таймаут одного запроса (default: 30s).
	Timeout time.Duration

	// HTTPClient — опционально; если задан, Timeout игнорируется.
	HTTPClient *http.Client
}

// NewClient создаёт клиент API.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		agentID:    cfg.AgentID,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}
}

// AgentID возвращает идентификатор агента.
func (c *Client) AgentID() string {
	return c.agentID
}

// GetTask возвращает полные данные task.
//
// 404 — ErrNotFound, другой не-2xx код — ErrUnexpectedStatus.
func (c *Client) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	var task domain.Task
	if err := c.do(ctx, http.MethodGet, taskPath(id, ""), nil, &task); err != nil {
		return nil, err
	}
	if task.ID == "" {
		task.ID = id
	}
	return &task, nil
}

// ReportError сообщает task store об ошибке выполнения.
func (c *Client) ReportError(ctx context.Context, id, errorMessage string) error {
	body := reportErrorRequest{AgentID: c.agentID, ErrorMessage: errorMessage}
	return c.do(ctx, http.MethodPut, taskPath(id, "error"), body, nil)
}

// SearchKnowledge ищет решения, похожие на текст ошибки.
//
// Результат отсортирован сервером по убыванию similarity.
func (c *Client) SearchKnowledge(ctx context.Context, query string, threshold float64, limit int) ([]domain.Solution, error) {
	body := searchRequest{Query: query, Threshold: threshold, Limit: limit}

	var solutions []domain.Solution
	if err := c.do(ctx, http.MethodPost, "/api/knowledge/search", body, &solutions); err != nil {
		return nil, err
	}
	return solutions, nil
}

// ReportSolutionApplied сообщает, было ли решение применено успешно.
func (c *Client) ReportSolutionApplied(ctx context.Context, id, solutionID string, success bool) error {
	body := solutionAppliedRequest{AgentID: c.agentID, SolutionID: solutionID, Success: success}
	return c.do(ctx, http.MethodPost, taskPath(id, "solution-applied"), body, nil)
}

// UpdateStatus меняет статус task.
func (c *Client) UpdateStatus(ctx context.Context, id string, status domain.TaskStatus) error {
	body := updateStatusRequest{AgentID: c.agentID, NewStatus: status}
	return c.do(ctx, http.MethodPut, taskPath(id, "status"), body, nil)
}

// --- HTTP helpers ---

func taskPath(id, suffix string) string {
	p := "/api/tasks/" + url.PathEscape(id)
	if suffix != "" {
		p += "/" + suffix
	}
	return p
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response of %s %s: %w", method, path, err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return fmt.Errorf("%w: HTTP %d: %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(msg)))
}
