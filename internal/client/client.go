// Package client is the typed HTTP client for the gearforge REST backend.
//
// Every failure is returned as one of three error types: *NetworkError when the
// backend cannot be reached, *HTTPError for a non-2xx reply and *APIError for a
// 2xx reply that carries success=false. Message maps any of them to the text
// shown to the user.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/meur/gearforge/internal/models"
)

const defaultTimeout = 30 * time.Second

// Client talks to the backend API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the backend at baseURL. A zero timeout uses the default.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// envelope is the common {success, error, message} wrapper
type envelope struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// send performs a request and returns the body of a 2xx response
func (c *Client) send(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request for %s: %w", path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: method + " " + path, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env envelope
		_ = json.Unmarshal(raw, &env)
		return nil, &HTTPError{StatusCode: resp.StatusCode, Message: env.Error}
	}
	return raw, nil
}

// call performs a request against an enveloped endpoint and decodes the reply into out
func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) (*envelope, error) {
	raw, err := c.send(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to decode response for %s: %w", path, err)
	}
	if env.Success != nil && !*env.Success {
		return nil, &APIError{Message: env.Error}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, fmt.Errorf("failed to decode response for %s: %w", path, err)
		}
	}
	return &env, nil
}

// getList fetches a bare JSON array endpoint
func (c *Client) getList(ctx context.Context, path string, out interface{}) error {
	raw, err := c.send(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response for %s: %w", path, err)
	}
	return nil
}

// --- Reference data ---

// Classes returns the guardian classes
func (c *Client) Classes(ctx context.Context) ([]models.ClassOption, error) {
	var out []models.ClassOption
	if err := c.getList(ctx, "/api/classes", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// EquipmentTypes returns the slot names in display order
func (c *Client) EquipmentTypes(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.getList(ctx, "/api/equipment-types", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// EquipmentTags returns the archetype table
func (c *Client) EquipmentTags(ctx context.Context) ([]models.TagConfig, error) {
	var out []models.TagConfig
	if err := c.getList(ctx, "/api/equipment-tags", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Attributes returns the stat names in display order
func (c *Client) Attributes(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.getList(ctx, "/api/attributes", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// --- Equipment ---

// AddEquipment adds a piece and returns it as stored
func (c *Client) AddEquipment(ctx context.Context, req models.EquipmentAdd) (*models.EquipmentView, error) {
	var out struct {
		Equipment models.EquipmentView `json:"equipment"`
	}
	if _, err := c.call(ctx, http.MethodPost, "/api/equipment/add", req, &out); err != nil {
		return nil, err
	}
	return &out.Equipment, nil
}

// DeleteEquipment removes a piece and returns the backend's confirmation message
func (c *Client) DeleteEquipment(ctx context.Context, class, id string) (string, error) {
	env, err := c.call(ctx, http.MethodPost, "/api/equipment/delete",
		models.EquipmentDelete{GuardianClass: class, EquipmentID: id}, nil)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// ListEquipment returns one class inventory
func (c *Client) ListEquipment(ctx context.Context, class string) ([]models.EquipmentView, error) {
	var out struct {
		Equipments []models.EquipmentView `json:"equipments"`
	}
	path := "/api/equipment/list?guardian_class=" + url.QueryEscape(class)
	if _, err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Equipments, nil
}

// ListAllEquipment returns every class inventory keyed by class
func (c *Client) ListAllEquipment(ctx context.Context) (map[string][]models.EquipmentView, error) {
	var out struct {
		Equipments map[string][]models.EquipmentView `json:"equipments"`
	}
	if _, err := c.call(ctx, http.MethodGet, "/api/equipment/list", nil, &out); err != nil {
		return nil, err
	}
	return out.Equipments, nil
}

// --- Builds ---

// BuildResult is a configure reply. Result is kept raw so it can be saved back unchanged.
type BuildResult struct {
	Result    json.RawMessage `json:"result"`
	Formatted string          `json:"formatted"`
}

// ConfigureBuild runs a build search on the backend
func (c *Client) ConfigureBuild(ctx context.Context, req models.BuildConfigure) (*BuildResult, error) {
	var out BuildResult
	if _, err := c.call(ctx, http.MethodPost, "/api/build/configure", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveBuild stores a named build
func (c *Client) SaveBuild(ctx context.Context, req models.BuildSave) (*models.Build, string, error) {
	var out struct {
		Build models.Build `json:"build"`
	}
	env, err := c.call(ctx, http.MethodPost, "/api/build/save", req, &out)
	if err != nil {
		return nil, "", err
	}
	return &out.Build, env.Message, nil
}

// ListBuilds returns saved builds. An empty class lists all of them.
func (c *Client) ListBuilds(ctx context.Context, class string) ([]models.Build, error) {
	var out struct {
		Builds []models.Build `json:"builds"`
	}
	path := "/api/build/list"
	if class != "" {
		path += "?guardian_class=" + url.QueryEscape(class)
	}
	if _, err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Builds, nil
}

// FindBuild looks a saved build up by ID. It returns nil when no build matches.
func (c *Client) FindBuild(ctx context.Context, id string) (*models.Build, error) {
	builds, err := c.ListBuilds(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range builds {
		if builds[i].ID == id {
			return &builds[i], nil
		}
	}
	return nil, nil
}

// DeleteBuild removes a saved build
func (c *Client) DeleteBuild(ctx context.Context, id string) (string, error) {
	env, err := c.call(ctx, http.MethodPost, "/api/build/delete", models.BuildDelete{BuildID: id}, nil)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// Health checks that the backend is up
func (c *Client) Health(ctx context.Context) error {
	_, err := c.send(ctx, http.MethodGet, "/health", nil)
	return err
}
