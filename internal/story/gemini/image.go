package gemini

import (
	"context"
	"encoding/base64"

	"google.golang.org/genai"
)

const defaultImageMIME = "image/png"

// Illustrate generates a square illustration for prompt and returns it as
// a data URI.
func (c *Client) Illustrate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", ErrEmptyText
	}

	resp, err := c.generate(ctx, c.cfg.ImageModel, prompt, &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
		ImageConfig:        &genai.ImageConfig{AspectRatio: "1:1"},
	})
	if err != nil {
		return "", err
	}

	blob := firstInline(resp, true)
	if blob == nil {
		return "", ErrNoImage
	}

	mime := blob.MIMEType
	if mime == "" {
		mime = defaultImageMIME
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(blob.Data), nil
}
