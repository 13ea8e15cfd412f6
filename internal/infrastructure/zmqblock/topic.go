// Package zmqblock subscribes to a Bitcoin node's ZMQ hashblock topic
// and republishes each new block hash on a Go channel.
package zmqblock

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/lightninglabs/gozmq"
	log "github.com/sirupsen/logrus"
)

const hashBlockTopic = "hashblock"

// Topic subscribes to hashblock and republishes each new hash on a Go
// channel. One zmqblock.Topic per node connection.
type Topic struct {
	host        string
	pollTimeout time.Duration

	mu     sync.Mutex
	conn   *gozmq.Conn
	closed bool

	log *log.Entry
}

// New builds a Topic bound to the node's ZMQ publisher endpoint
// (typically tcp://host:port).
func New(host string) *Topic {
	return &Topic{
		host:        host,
		pollTimeout: 20 * time.Second,
		log:         log.WithField("component", "zmqblock"),
	}
}

// Subscribe dials the ZMQ endpoint and streams hex-encoded block hashes.
// A receive error is retried on the same connection after a one-second
// pause rather than closing the channel, since a missed block is
// recovered by the next one.
func (t *Topic) Subscribe(ctx context.Context) (<-chan string, error) {
	conn, err := gozmq.Subscribe(t.host, []string{hashBlockTopic}, t.pollTimeout)
	if err != nil {
		return nil, fmt.Errorf("zmqblock: subscribe: %w", err)
	}

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()

	out := make(chan string)
	go t.run(ctx, conn, out)
	return out, nil
}

func (t *Topic) run(ctx context.Context, conn *gozmq.Conn, out chan<- string) {
	defer close(out)

	bufs := make([][]byte, 0, 3)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		bufs = bufs[:0]
		msg, err := conn.Receive(bufs)
		if err != nil {
			if t.isClosed() {
				return
			}
			time.Sleep(time.Second)
			continue
		}
		if len(msg) < 2 {
			continue
		}
		if string(msg[0]) != hashBlockTopic {
			continue
		}

		hash := hex.EncodeToString(msg[1])
		select {
		case out <- hash:
		case <-ctx.Done():
			return
		}
	}
}

func (t *Topic) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *Topic) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.conn != nil {
		return t.conn.Close()
	}
	return nil
}
