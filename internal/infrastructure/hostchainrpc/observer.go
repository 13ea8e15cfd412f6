package hostchainrpc

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Observer polls the host chain's changed_objects signal and republishes
// each batch on a Go channel, the producer side of a signals/slots
// pairing with the coordinator's debounced consumer. Without a real host-chain push transport to
// target, polling is this adapter's honest approximation; the
// coordinator's own debouncer absorbs any resulting burstiness.
type Observer struct {
	c            *Client
	pollInterval time.Duration
	log          *log.Entry
}

// NewObserver builds a poll-based ports.ProposalObserver against the
// configured host chain endpoint.
func NewObserver(c *Client, pollInterval time.Duration) *Observer {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Observer{c: c, pollInterval: pollInterval, log: log.WithField("component", "hostchainrpc.observer")}
}

// Changes polls get_changed_objects on pollInterval and forwards every
// non-empty batch. The channel is closed when ctx is canceled.
func (o *Observer) Changes(ctx context.Context) (<-chan []string, error) {
	out := make(chan []string)
	go o.run(ctx, out)
	return out, nil
}

func (o *Observer) run(ctx context.Context, out chan<- []string) {
	defer close(out)

	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var batch []string
			if err := o.c.call(ctx, "get_changed_objects", nil, &batch); err != nil {
				o.log.WithError(err).Warn("poll changed objects failed")
				continue
			}
			if len(batch) == 0 {
				continue
			}
			select {
			case out <- batch:
			case <-ctx.Done():
				return
			}
		}
	}
}
