package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	ws "github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/dukerupert/chorewheel/internal/websocket"
)

// Listen subscribes to change notifications for a household and calls fn for
// each one until ctx is done or the connection drops. A cancelled ctx is not
// reported as an error.
func (c *Client) Listen(ctx context.Context, householdID int64, fn func(websocket.Message)) error {
	header := http.Header{}
	if token := c.Token(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	target := c.baseURL + "/ws?household_id=" + strconv.FormatInt(householdID, 10)

	conn, resp, err := ws.Dial(ctx, target, &ws.DialOptions{HTTPHeader: header})
	if err != nil {
		if resp != nil && resp.StatusCode >= 400 {
			return fmt.Errorf("listen: %w", &APIError{Status: resp.StatusCode})
		}
		return fmt.Errorf("listen: %w", err)
	}
	defer conn.CloseNow()

	for {
		var msg websocket.Message
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if ctx.Err() != nil || ws.CloseStatus(err) == ws.StatusNormalClosure || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("listen: %w", err)
		}
		fn(msg)
	}
}
