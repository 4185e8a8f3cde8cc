package spyagencysdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a minimal Spy Cat Agency HTTP API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	// RequestID, when set, is sent as X-Request-ID on every call.
	RequestID string
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 15 * time.Second,
	}
}

type Cat struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	YearsExperience int     `json:"years_experience"`
	Breed           string  `json:"breed"`
	Salary          float64 `json:"salary"`
}

// CatSummary is the cat projection embedded in missions.
type CatSummary struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Breed           string `json:"breed"`
	YearsExperience int    `json:"years_experience"`
}

type Target struct {
	ID        int64  `json:"id"`
	MissionID int64  `json:"mission_id"`
	Name      string `json:"name"`
	Country   string `json:"country"`
	Notes     string `json:"notes"`
	Complete  bool   `json:"complete"`
}

type Mission struct {
	ID       int64       `json:"id"`
	Complete bool        `json:"complete"`
	CatID    *int64      `json:"cat_id"`
	Cat      *CatSummary `json:"cat,omitempty"`
	Targets  []Target    `json:"targets"`
}

// NewTarget is one target of a CreateMission call.
type NewTarget struct {
	Name    string `json:"name"`
	Country string `json:"country"`
	Notes   string `json:"notes,omitempty"`
}

// TargetUpdate is the result of UpdateTarget.
type TargetUpdate struct {
	Target
	MissionComplete bool `json:"mission_complete"`
}

// APIError wraps non-2xx responses. Code and Message are filled from the
// {"error": {...}} envelope when the body carries one.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error: status=%d code=%s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

func (c *Client) CreateCat(ctx context.Context, name string, yearsExperience int, breed string, salary float64) (Cat, error) {
	body := map[string]any{
		"name":             name,
		"years_experience": yearsExperience,
		"breed":            breed,
		"salary":           salary,
	}
	var resp Cat
	err := c.do(ctx, http.MethodPost, "cats", body, &resp)
	return resp, err
}

func (c *Client) ListCats(ctx context.Context) ([]Cat, error) {
	var resp []Cat
	err := c.do(ctx, http.MethodGet, "cats", nil, &resp)
	return resp, err
}

func (c *Client) GetCat(ctx context.Context, id int64) (Cat, error) {
	var resp Cat
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("cats/%d", id), nil, &resp)
	return resp, err
}

// UpdateCatSalary changes the only mutable attribute of a cat.
func (c *Client) UpdateCatSalary(ctx context.Context, id int64, salary float64) (Cat, error) {
	var resp Cat
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("cats/%d", id), map[string]any{"salary": salary}, &resp)
	return resp, err
}

func (c *Client) DeleteCat(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("cats/%d", id), nil, nil)
}

func (c *Client) CreateMission(ctx context.Context, targets []NewTarget) (Mission, error) {
	var resp Mission
	err := c.do(ctx, http.MethodPost, "missions", map[string]any{"targets": targets}, &resp)
	return resp, err
}

func (c *Client) ListMissions(ctx context.Context) ([]Mission, error) {
	var resp []Mission
	err := c.do(ctx, http.MethodGet, "missions", nil, &resp)
	return resp, err
}

func (c *Client) GetMission(ctx context.Context, id int64) (Mission, error) {
	var resp Mission
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("missions/%d", id), nil, &resp)
	return resp, err
}

func (c *Client) DeleteMission(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("missions/%d", id), nil, nil)
}

func (c *Client) AssignCat(ctx context.Context, missionID, catID int64) (Mission, error) {
	var resp Mission
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("missions/%d/assign/%d", missionID, catID), nil, &resp)
	return resp, err
}

func (c *Client) UnassignCat(ctx context.Context, missionID int64) (Mission, error) {
	var resp Mission
	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("missions/%d/assign", missionID), nil, &resp)
	return resp, err
}

// UpdateTarget sends only the non-nil fields.
func (c *Client) UpdateTarget(ctx context.Context, id int64, notes *string, complete *bool) (TargetUpdate, error) {
	body := map[string]any{}
	if notes != nil {
		body["notes"] = *notes
	}
	if complete != nil {
		body["complete"] = *complete
	}
	var resp TargetUpdate
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("targets/%d", id), body, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var reader io.Reader
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
		reader = &buf
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.RequestID != "" {
		req.Header.Set("X-Request-ID", c.RequestID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return newAPIError(resp.StatusCode, b)
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: string(body)}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
