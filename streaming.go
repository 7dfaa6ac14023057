package ignite

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// StreamConfig configures the websocket report stream.
type StreamConfig struct {
	// Enabled turns on the stream endpoint.
	Enabled bool `yaml:"enabled"`
	// BufferSize is the channel buffer per subscription.
	BufferSize int `yaml:"buffer_size"`
	// PingInterval is how often clients are pinged.
	PingInterval time.Duration `yaml:"ping_interval"`
	// WriteTimeout bounds each websocket write.
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DefaultStreamConfig returns default streaming configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Enabled:      true,
		BufferSize:   64,
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Subscription receives reports for one metric, or every metric when
// Metric is empty.
type Subscription struct {
	ID     string
	Metric string

	ch     chan *Report
	mu     sync.Mutex
	closed bool
}

// C returns the channel of published reports. It is closed on Unsubscribe.
func (s *Subscription) C() <-chan *Report {
	return s.ch
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// StreamHub fans generated reports out to subscribers.
type StreamHub struct {
	config StreamConfig
	logger Logger

	mu      sync.RWMutex
	subs    map[string]*Subscription
	nextID  uint64
	dropped uint64
}

// NewStreamHub creates a hub.
func NewStreamHub(cfg StreamConfig, logger Logger) *StreamHub {
	def := DefaultStreamConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	return &StreamHub{
		config: cfg,
		logger: loggerOrNop(logger),
		subs:   make(map[string]*Subscription),
	}
}

// Subscribe registers a subscription for metric.
func (h *StreamHub) Subscribe(metric string) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		ID:     fmt.Sprintf("sub-%d", h.nextID),
		Metric: metric,
		ch:     make(chan *Report, h.config.BufferSize),
	}
	h.subs[sub.ID] = sub
	streamSubscribers.Inc()
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (h *StreamHub) Unsubscribe(id string) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
	}
	h.mu.Unlock()

	if ok {
		streamSubscribers.Dec()
		sub.close()
	}
}

// Publish delivers r to every matching subscription. Slow subscribers lose
// reports rather than block the publisher.
func (h *StreamHub) Publish(r *Report) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs {
		if sub.Metric != "" && sub.Metric != r.Metric {
			continue
		}
		select {
		case sub.ch <- r:
		default:
			h.dropped++
		}
	}
}

// Count returns the number of active subscriptions.
func (h *StreamHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// List returns active subscription ids in order.
func (h *StreamHub) List() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Dropped returns how many deliveries were skipped because a buffer was full.
func (h *StreamHub) Dropped() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Close unsubscribes everyone.
func (h *StreamHub) Close() {
	for _, id := range h.List() {
		h.Unsubscribe(id)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamMessage is the JSON envelope written to websocket clients.
type StreamMessage struct {
	Type   string  `json:"type"`
	SubID  string  `json:"sub_id,omitempty"`
	Metric string  `json:"metric,omitempty"`
	Report *Report `json:"report,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// WebSocketHandler upgrades the request and streams reports for the
// ?metric= filter until the client disconnects.
func (h *StreamHub) WebSocketHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Warn("websocket upgrade failed", "error", err)
			return
		}
		defer func() { _ = conn.Close() }()

		sub := h.Subscribe(r.URL.Query().Get("metric"))
		defer h.Unsubscribe(sub.ID)

		// The read loop only detects disconnects; clients send nothing.
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		if err := h.write(conn, StreamMessage{Type: "subscribed", SubID: sub.ID, Metric: sub.Metric}); err != nil {
			return
		}

		ping := time.NewTicker(h.config.PingInterval)
		defer ping.Stop()
		for {
			select {
			case <-gone:
				return
			case <-r.Context().Done():
				return
			case <-ping.C:
				deadline := time.Now().Add(h.config.WriteTimeout)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					return
				}
			case report, ok := <-sub.C():
				if !ok {
					return
				}
				msg := StreamMessage{Type: "report", SubID: sub.ID, Metric: report.Metric, Report: report}
				if err := h.write(conn, msg); err != nil {
					return
				}
			}
		}
	}
}

func (h *StreamHub) write(conn *websocket.Conn, msg StreamMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
	return conn.WriteJSON(msg)
}
