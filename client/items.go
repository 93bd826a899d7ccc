package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

func itemPath(id string, suffix ...string) string {
	p := "/api/items/" + url.PathEscape(id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

// ListItems returns every item of the signed-in user, newest first.
func (c *Client) ListItems(ctx context.Context) ([]Item, error) {
	var out ItemList
	if err := c.do(ctx, call{op: "listItems", method: http.MethodGet, path: "/api/items", out: &out}); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// GetItem returns one item.
func (c *Client) GetItem(ctx context.Context, id string) (*Item, error) {
	var out Item
	if err := c.do(ctx, call{op: "getItem", method: http.MethodGet, path: itemPath(id), out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateItem stores a draft. The service answers before enrichment runs, so
// the returned item is usually still AIPending.
func (c *Client) CreateItem(ctx context.Context, d Draft) (*Item, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	var out Item
	err := c.do(ctx, call{
		op: "createItem", method: http.MethodPost, path: "/api/items",
		body: d, want: http.StatusCreated, out: &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateItem applies changes to an item.
func (c *Client) UpdateItem(ctx context.Context, id string, changes ItemChanges) (*Item, error) {
	var out Item
	if err := c.do(ctx, call{op: "updateItem", method: http.MethodPatch, path: itemPath(id), body: changes, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteItem removes an item.
func (c *Client) DeleteItem(ctx context.Context, id string) error {
	return c.do(ctx, call{op: "deleteItem", method: http.MethodDelete, path: itemPath(id), want: http.StatusNoContent})
}

// BatchUpdate applies independent patches. When some fail the rest still
// apply and the call returns a 502 APIError.
func (c *Client) BatchUpdate(ctx context.Context, updates []ItemUpdate) error {
	return c.do(ctx, call{
		op: "batchUpdate", method: http.MethodPost, path: "/api/items:batchUpdate",
		body: map[string]any{"updates": updates}, want: http.StatusNoContent,
	})
}

// Media downloads the binary payload of an image or audio item, following
// the redirect to object storage when the payload was offloaded.
func (c *Client) Media(ctx context.Context, id string) (*Media, error) {
	req := c.rest.R().SetContext(ctx).SetHeader("Accept", "*/*")
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}
	resp, err := req.Get(itemPath(id, "media"))
	if err != nil {
		return nil, fmt.Errorf("media: %w", err)
	}
	if resp.IsError() {
		return nil, newAPIError("media", resp.StatusCode(), resp.Body())
	}
	return &Media{Data: resp.Body(), MimeType: resp.Header().Get("Content-Type")}, nil
}
