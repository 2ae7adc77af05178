package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/zhouzirui/contact-desk/backend/internal/model/contact"
)

type liveFrame struct {
	Type string           `json:"type"`
	Data *contact.Message `json:"data,omitempty"`
}

// Follow subscribes to the live feed and calls onMessage for every newly
// accepted message until ctx is done or the connection drops. onReady, when
// non-nil, runs once the server confirms the subscription.
func (c *Client) Follow(ctx context.Context, token string, onReady func(), onMessage func(contact.Message)) error {
	url := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/messages/live"
	header := http.Header{}
	header.Set("Authorization", token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			defer resp.Body.Close()
			data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
			return &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
		}
		return transportError("dial live feed", err)
	}
	defer conn.Close()

	// 取消时关闭连接以解除阻塞读。
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return transportError("read live feed", err)
		}

		var frame liveFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return fmt.Errorf("%w: decode live frame: %w", ErrNetworkFailure, err)
		}
		switch frame.Type {
		case "ready":
			if onReady != nil {
				onReady()
			}
		case "message":
			if frame.Data != nil {
				onMessage(*frame.Data)
			}
		}
	}
}
