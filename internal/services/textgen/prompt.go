package textgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const rewriteSystemPrompt = `You are a script editor for short narrated videos.
Rewrite the script you are given so it reads naturally when spoken aloud:
short sentences, concrete wording, no headings, no markdown, no scene
directions. Preserve the meaning and the order of ideas. Respond with the
rewritten script only.`

const translateSystemPrompt = `You are a translator for narrated video
scripts. Translate the script you are given into %s. Keep the tone and
pacing suitable for narration and preserve paragraph breaks. Respond with
the translated script only.`

const imagePromptSystemPrompt = `You draft illustration briefs for a narrated
video. Given a script, produce exactly %d image generation prompts, one per
scene, in script order. Each prompt must be a self-contained visual
description in English with no text overlays requested. Respond with JSON:
{"prompts": ["...", "..."]}`

// Rewrite returns a narration-ready version of the script.
func (c *Client) Rewrite(ctx context.Context, script string) (string, error) {
	script = strings.TrimSpace(script)
	if script == "" {
		return "", errors.New("textgen rewrite: empty script")
	}
	return c.Complete(ctx, rewriteSystemPrompt, script)
}

// Translate returns the script translated into the named language.
func (c *Client) Translate(ctx context.Context, script, language string) (string, error) {
	script = strings.TrimSpace(script)
	if script == "" {
		return "", errors.New("textgen translate: empty script")
	}
	language = strings.TrimSpace(language)
	if language == "" {
		return "", errors.New("textgen translate: empty language")
	}
	return c.Complete(ctx, fmt.Sprintf(translateSystemPrompt, language), script)
}

// ImagePrompts asks the model for exactly count illustration prompts. The
// caller decides whether a short or empty list is worth a retry.
func (c *Client) ImagePrompts(ctx context.Context, script string, count int) ([]string, error) {
	script = strings.TrimSpace(script)
	if script == "" {
		return nil, errors.New("textgen prompts: empty script")
	}
	if count <= 0 {
		return nil, fmt.Errorf("textgen prompts: invalid count %d", count)
	}

	content, err := c.CompleteJSON(ctx, fmt.Sprintf(imagePromptSystemPrompt, count), script)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Prompts []string `json:"prompts"`
	}
	if err := DecodeModelJSON(content, &parsed); err != nil {
		return nil, fmt.Errorf("textgen prompts: parse payload: %w", err)
	}

	prompts := make([]string, 0, len(parsed.Prompts))
	for _, prompt := range parsed.Prompts {
		if trimmed := strings.TrimSpace(prompt); trimmed != "" {
			prompts = append(prompts, trimmed)
		}
	}
	return prompts, nil
}
