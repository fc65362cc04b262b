package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout  = 120 * time.Second
	defaultPollInterval = 5 * time.Second
	defaultPollBudget   = 10 * time.Minute
)

// Config captures the runtime settings required to talk to the media API.
type Config struct {
	APIKey              string
	BaseURL             string
	ImageModel          string
	ClipModel           string
	ImageSize           string
	TimeoutSeconds      int
	PollIntervalSeconds int
}

// Client wraps the image and clip generation endpoints.
type Client struct {
	cfg          Config
	httpClient   *http.Client
	pollInterval time.Duration
	pollBudget   time.Duration
	sleeper      func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithPollBudget caps how long a clip job may stay pending.
func WithPollBudget(budget time.Duration) Option {
	return func(c *Client) {
		if budget > 0 {
			c.pollBudget = budget
		}
	}
}

// WithSleeper overrides how poll sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a media generation client from the supplied
// configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	interval := defaultPollInterval
	if cfg.PollIntervalSeconds > 0 {
		interval = time.Duration(cfg.PollIntervalSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:              strings.TrimSpace(cfg.APIKey),
			BaseURL:             strings.TrimSpace(strings.TrimSuffix(cfg.BaseURL, "/")),
			ImageModel:          strings.TrimSpace(cfg.ImageModel),
			ClipModel:           strings.TrimSpace(cfg.ClipModel),
			ImageSize:           strings.TrimSpace(cfg.ImageSize),
			TimeoutSeconds:      cfg.TimeoutSeconds,
			PollIntervalSeconds: cfg.PollIntervalSeconds,
		},
		httpClient:   &http.Client{Timeout: timeout},
		pollInterval: interval,
		pollBudget:   defaultPollBudget,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = "https://api.openai.com/v1"
	}
	if client.cfg.ImageSize == "" {
		client.cfg.ImageSize = "1536x1024"
	}
	if client.cfg.ImageModel == "" {
		client.cfg.ImageModel = "gpt-image-1"
	}
	if client.cfg.ClipModel == "" {
		client.cfg.ClipModel = "sora-2"
	}
	return client
}

// Configured reports whether the client has credentials to work with.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIKey != ""
}

type imageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format"`
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
		URL     string `json:"url"`
	} `json:"data"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
}

// GenerateImage renders one still for the prompt and writes it to outputPath.
func (c *Client) GenerateImage(ctx context.Context, prompt, outputPath string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return errors.New("imagegen still: empty prompt")
	}
	if c.cfg.APIKey == "" {
		return errors.New("imagegen still: api key required")
	}

	var parsed imageResponse
	err := c.postJSON(ctx, c.cfg.BaseURL+"/images/generations", imageRequest{
		Model:          c.cfg.ImageModel,
		Prompt:         prompt,
		N:              1,
		Size:           c.cfg.ImageSize,
		ResponseFormat: "b64_json",
	}, &parsed)
	if err != nil {
		return fmt.Errorf("imagegen still: %w", err)
	}
	if parsed.Error != nil {
		return fmt.Errorf("imagegen still: api error: %s", strings.TrimSpace(parsed.Error.Message))
	}
	if len(parsed.Data) == 0 {
		return errors.New("imagegen still: empty response data")
	}

	entry := parsed.Data[0]
	if entry.B64JSON != "" {
		raw, err := base64.StdEncoding.DecodeString(entry.B64JSON)
		if err != nil {
			return fmt.Errorf("imagegen still: decode payload: %w", err)
		}
		return writeAtomic(outputPath, bytes.NewReader(raw))
	}
	if entry.URL != "" {
		return c.download(ctx, entry.URL, outputPath)
	}
	return errors.New("imagegen still: response carried neither payload nor url")
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload any, target any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) download(ctx context.Context, rawURL, outputPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http %d fetching asset", resp.StatusCode)
	}
	return writeAtomic(outputPath, resp.Body)
}

func writeAtomic(outputPath string, body io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(outputPath), ".asset-*")
	if err != nil {
		return fmt.Errorf("temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write asset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close asset: %w", err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("finalize asset: %w", err)
	}
	return nil
}
