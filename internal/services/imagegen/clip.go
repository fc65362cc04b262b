package imagegen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type clipRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	Seconds int    `json:"seconds"`
}

type clipJob struct {
	ID     string    `json:"id"`
	Status string    `json:"status"`
	Error  *apiError `json:"error"`
}

// GenerateClip submits a motion clip job for the prompt, polls it to
// completion, and writes the fetched video to outputPath. The poll loop
// stops on context cancellation or when the poll budget runs out.
func (c *Client) GenerateClip(ctx context.Context, prompt string, seconds int, outputPath string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return errors.New("imagegen clip: empty prompt")
	}
	if seconds <= 0 {
		return fmt.Errorf("imagegen clip: invalid duration %d", seconds)
	}
	if c.cfg.APIKey == "" {
		return errors.New("imagegen clip: api key required")
	}

	var job clipJob
	err := c.postJSON(ctx, c.cfg.BaseURL+"/videos", clipRequest{
		Model:   c.cfg.ClipModel,
		Prompt:  prompt,
		Seconds: seconds,
	}, &job)
	if err != nil {
		return fmt.Errorf("imagegen clip: submit: %w", err)
	}
	if job.ID == "" {
		return errors.New("imagegen clip: submit returned no job id")
	}

	if err := c.awaitClip(ctx, job.ID); err != nil {
		return err
	}
	if err := c.download(ctx, c.cfg.BaseURL+"/videos/"+job.ID+"/content", outputPath); err != nil {
		return fmt.Errorf("imagegen clip: fetch: %w", err)
	}
	return nil
}

func (c *Client) awaitClip(ctx context.Context, jobID string) error {
	deadline := time.Now().Add(c.pollBudget)
	for {
		var job clipJob
		if err := c.getJSON(ctx, c.cfg.BaseURL+"/videos/"+jobID, &job); err != nil {
			return fmt.Errorf("imagegen clip: poll: %w", err)
		}
		switch strings.ToLower(job.Status) {
		case "completed", "succeeded":
			return nil
		case "failed", "cancelled", "canceled":
			message := "job " + job.Status
			if job.Error != nil && strings.TrimSpace(job.Error.Message) != "" {
				message = strings.TrimSpace(job.Error.Message)
			}
			return fmt.Errorf("imagegen clip: %s", message)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("imagegen clip: job %s still pending after %s", jobID, c.pollBudget)
		}
		if err := c.sleep(ctx, c.pollInterval); err != nil {
			return err
		}
	}
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
