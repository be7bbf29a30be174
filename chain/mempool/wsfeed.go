package mempool

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSFeed subscribes to a mempool.space-style WebSocket feed
// ("want": ["blocks"]) and forwards new-block
// notifications faster than the poll loop would catch them (§4.4: "a
// push channel ... may deliver the same events faster; both sources
// feed the same idempotent pipeline").
type WSFeed struct {
	url string

	mu   sync.Mutex
	conn *websocket.Conn

	newBlock chan uint32
	quit     chan struct{}
	wg       sync.WaitGroup
}

// NewWSFeed constructs a feed that has not yet connected.
func NewWSFeed(url string) *WSFeed {
	return &WSFeed{
		url:      url,
		newBlock: make(chan uint32, 16),
		quit:     make(chan struct{}),
	}
}

// NewBlocks returns the channel of block heights observed over the
// socket. Consumers should still trust the poller as the source of
// truth; this channel only shortens the latency before the next poll.
func (f *WSFeed) NewBlocks() <-chan uint32 {
	return f.newBlock
}

// Connect dials the feed and subscribes to block tip updates. The read
// loop below exits on its first read error and does not reconnect.
func (f *WSFeed) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(f.url, nil)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()

	if err := conn.WriteJSON(map[string]interface{}{
		"action": "want",
		"data":   []string{"blocks"},
	}); err != nil {
		conn.Close()
		return err
	}

	f.wg.Add(1)
	go f.readLoop(conn)
	return nil
}

// Close stops the read loop and closes the socket.
func (f *WSFeed) Close() error {
	close(f.quit)
	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	f.wg.Wait()
	return err
}

func (f *WSFeed) readLoop(conn *websocket.Conn) {
	defer f.wg.Done()

	for {
		select {
		case <-f.quit:
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))

		var msg struct {
			Block struct {
				Height uint32 `json:"height"`
			} `json:"block"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			log.Debugf("mempool: ws feed read error: %v", err)
			return
		}
		if msg.Block.Height == 0 {
			continue
		}

		select {
		case f.newBlock <- msg.Block.Height:
		default:
		}
	}
}
