package docstore

import (
	"context"
	"dashd/internal/models"
	"dashd/internal/providers"
	"fmt"

	"github.com/gorilla/websocket"
)

// Watch opens a standing change subscription for the identity's statistics
// document. Records arrive in the order the store emits them. The returned
// channel closes when ctx is cancelled or the transport drops; teardown is
// guaranteed either way. There is no automatic reconnect; a dropped
// subscription stays down until the next load.
func (c *Client) Watch(ctx context.Context, identity string) (<-chan *models.UsageRecord, error) {
	url := fmt.Sprintf("%s/stats/%s/watch", c.watchURL, identity)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("docstore: watch dial failed: %w", err)
	}

	ch := make(chan *models.UsageRecord)

	// ReadJSON blocks without honoring ctx; closing the connection is what
	// unblocks it on cancellation.
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	go func() {
		defer close(ch)
		defer conn.Close()
		for {
			var rec models.UsageRecord
			if err := conn.ReadJSON(&rec); err != nil {
				if ctx.Err() == nil {
					c.logger.Warnf(providers.TypeSync, "Watch for %s closed: %s", identity, err)
				}
				return
			}
			rec.Normalize()
			select {
			case ch <- &rec:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}
