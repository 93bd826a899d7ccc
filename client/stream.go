package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxEventBytes bounds one server-sent event; snapshots carry inline media.
const maxEventBytes = 64 << 20

// StreamItems subscribes to item snapshots. fn receives the current list at
// once and a fresh list after every change; intermediate snapshots may be
// skipped by the service when fn or the network is slow. StreamItems blocks
// until ctx is cancelled (returning nil), the service closes the stream
// (io.ErrUnexpectedEOF), or fn returns an error.
func (c *Client) StreamItems(ctx context.Context, fn func(ItemList) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/items/stream", nil)
	if err != nil {
		return err
	}
	if c.tokens == nil {
		return ErrNoToken
	}
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Accept", "text/event-stream")

	// no client timeout: the stream stays open
	hc := &http.Client{Transport: c.http.Transport}
	resp, err := hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("stream: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return newAPIError("streamItems", resp.StatusCode, body)
	}

	err = readEvents(resp.Body, func(event string, data []byte) error {
		if event != "snapshot" {
			return nil
		}
		var list ItemList
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("stream: decode snapshot: %w", err)
		}
		return fn(list)
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// readEvents parses a text/event-stream body, calling fn once per event.
// Comment lines (heartbeats) are skipped.
func readEvents(r io.Reader, fn func(event string, data []byte) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxEventBytes)

	event := ""
	var data bytes.Buffer
	for sc.Scan() {
		line := sc.Bytes()
		switch {
		case len(line) == 0:
			if data.Len() > 0 {
				if event == "" {
					event = "message"
				}
				if err := fn(event, data.Bytes()); err != nil {
					return err
				}
			}
			event = ""
			data.Reset()
		case line[0] == ':':
		case bytes.HasPrefix(line, []byte("event:")):
			event = string(bytes.TrimSpace(line[len("event:"):]))
		case bytes.HasPrefix(line, []byte("data:")):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.Write(bytes.TrimPrefix(line[len("data:"):], []byte(" ")))
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return io.ErrUnexpectedEOF
}

// IsStreamClosed reports whether err means the service ended the stream.
func IsStreamClosed(err error) bool { return errors.Is(err, io.ErrUnexpectedEOF) }
