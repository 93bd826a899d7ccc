package client

import (
	"context"
	"net/http"
)

func (c *Client) itemAction(ctx context.Context, op, id, action string, body any) (*Item, error) {
	var out Item
	if err := c.do(ctx, call{op: op, method: http.MethodPost, path: itemPath(id, action), body: body, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// Summarize fills the item's summary.
func (c *Client) Summarize(ctx context.Context, id string) (*Item, error) {
	return c.itemAction(ctx, "summarize", id, "summarize", nil)
}

// Transcribe fills an audio item's transcription.
func (c *Client) Transcribe(ctx context.Context, id string) (*Item, error) {
	return c.itemAction(ctx, "transcribe", id, "transcribe", nil)
}

// Analyze describes an image item; prompt may be empty.
func (c *Client) Analyze(ctx context.Context, id, prompt string) (*Item, error) {
	var body any
	if prompt != "" {
		body = map[string]string{"prompt": prompt}
	}
	return c.itemAction(ctx, "analyze", id, "analyze", body)
}

// EditImage replaces an image item's payload with an edited version.
func (c *Client) EditImage(ctx context.Context, id, prompt string) (*Item, error) {
	return c.itemAction(ctx, "editImage", id, "edit-image", map[string]string{"prompt": prompt})
}

// GenerateImage creates a new ai_image item. An empty aspect ratio means
// square.
func (c *Client) GenerateImage(ctx context.Context, prompt string, aspect AspectRatio) (*Item, error) {
	var out Item
	err := c.do(ctx, call{
		op: "generateImage", method: http.MethodPost, path: "/api/images",
		body: map[string]string{"prompt": prompt, "aspectRatio": string(aspect)},
		want: http.StatusCreated, out: &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Organize assigns category and priority to the given items, or to all
// items when ids is empty.
func (c *Client) Organize(ctx context.Context, ids ...string) ([]OrganizedItem, error) {
	var out struct {
		Organized []OrganizedItem `json:"organized"`
	}
	var body any
	if len(ids) > 0 {
		body = map[string][]string{"ids": ids}
	}
	if err := c.do(ctx, call{op: "organize", method: http.MethodPost, path: "/api/organize", body: body, out: &out}); err != nil {
		return nil, err
	}
	return out.Organized, nil
}

// Chat asks the assistant one question.
func (c *Client) Chat(ctx context.Context, in ChatInput) (*ChatReply, error) {
	var out ChatReply
	if err := c.do(ctx, call{op: "chat", method: http.MethodPost, path: "/api/chat", body: in, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}
