package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// RecordResponse — запись лога из API.
type RecordResponse struct {
	ID         string         `json:"id"`
	Timestamp  string         `json:"timestamp"`
	Level      string         `json:"level"`
	Source     string         `json:"source"`
	Host       string         `json:"host,omitempty"`
	PID        int            `json:"pid,omitempty"`
	Message    string         `json:"message"`
	Attrs      map[string]any `json:"attrs,omitempty"`
	IngestedAt string         `json:"ingested_at"`
}

// SourceInfoResponse — сводка по источнику из API.
type SourceInfoResponse struct {
	Source   string `json:"source"`
	Count    int64  `json:"count"`
	LastSeen string `json:"last_seen"`
}

// SpoolEntryResponse — запись spool из API (без payload).
type SpoolEntryResponse struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	RecordCount int    `json:"record_count"`
	Attempts    int    `json:"attempts"`
	LastError   string `json:"last_error,omitempty"`
	CreatedAt   string `json:"created_at"`
	RedrivenAt  string `json:"redriven_at,omitempty"`
}

// PurgeResponse — результат удаления записей.
type PurgeResponse struct {
	Deleted int64 `json:"deleted"`
}

// RedriveResponse — результат повторной отправки spool.
type RedriveResponse struct {
	Redriven int `json:"redriven"`
	Failed   int `json:"failed"`
}

// ListRecordsOpts — параметры фильтрации записей.
type ListRecordsOpts struct {
	Level  string
	Source string
	Since  string
	Until  string
	Query  string
	Limit  int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client — HTTP-клиент для API pubslog.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API по базовому URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Records ---

// ListRecords возвращает записи логов с фильтрацией.
func (c *Client) ListRecords(opts ListRecordsOpts) ([]RecordResponse, error) {
	params := url.Values{}
	if opts.Level != "" {
		params.Set("level", opts.Level)
	}
	if opts.Source != "" {
		params.Set("source", opts.Source)
	}
	if opts.Since != "" {
		params.Set("since", opts.Since)
	}
	if opts.Until != "" {
		params.Set("until", opts.Until)
	}
	if opts.Query != "" {
		params.Set("q", opts.Query)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	var records []RecordResponse
	err := c.list("/api/v1/records", params, &records)
	return records, err
}

// GetRecord возвращает запись по ID.
func (c *Client) GetRecord(id string) (*RecordResponse, error) {
	var record RecordResponse
	err := c.get("/api/v1/records/"+id, &record)
	return &record, err
}

// PurgeRecords удаляет записи старше before (RFC3339); source — опциональный фильтр.
func (c *Client) PurgeRecords(before, source string) (*PurgeResponse, error) {
	params := url.Values{}
	params.Set("before", before)
	if source != "" {
		params.Set("source", source)
	}

	var result PurgeResponse
	err := c.doData(http.MethodDelete, "/api/v1/records?"+params.Encode(), nil, &result)
	return &result, err
}

// --- Sources ---

// ListSources возвращает сводку по источникам.
func (c *Client) ListSources() ([]SourceInfoResponse, error) {
	var sources []SourceInfoResponse
	err := c.list("/api/v1/sources", nil, &sources)
	return sources, err
}

// --- Spool ---

// ListSpool возвращает отложенные пачки.
func (c *Client) ListSpool(limit int) ([]SpoolEntryResponse, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var entries []SpoolEntryResponse
	err := c.list("/api/v1/spool", params, &entries)
	return entries, err
}

// RedriveSpool повторно отправляет все отложенные пачки.
func (c *Client) RedriveSpool() (*RedriveResponse, error) {
	var result RedriveResponse
	err := c.post("/api/v1/spool/redrive", nil, &result)
	return &result, err
}

// RedriveSpoolEntry повторно отправляет одну пачку по ID.
func (c *Client) RedriveSpoolEntry(id string) (*RedriveResponse, error) {
	var result RedriveResponse
	err := c.post("/api/v1/spool/"+id+"/redrive", nil, &result)
	return &result, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
