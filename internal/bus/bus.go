// Package bus publishes finished dialogue turns to a websocket message bus.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	log "log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"bivox/internal/dialogue"
)

const writeTimeout = 5 * time.Second

// Message is the envelope every bus participant speaks.
type Message struct {
	From     string `json:"from"`
	To       string `json:"to,omitempty"`
	Kind     string `json:"kind"`
	Content  string `json:"content"`
	Turn     int    `json:"turn,omitempty"`
	Language string `json:"language,omitempty"`
	Reply    string `json:"reply,omitempty"`
	Outcome  string `json:"outcome,omitempty"`
	Error    string `json:"error,omitempty"`
}

type Bus struct {
	mu   sync.Mutex
	conn *websocket.Conn
	from string
}

func Dial(ctx context.Context, wsURL, from string) (*Bus, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("bus url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("bus url %q: scheme must be ws or wss", wsURL)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial bus: %w", err)
	}

	log.Info("Connected to bus", "url", wsURL)
	return &Bus{conn: conn, from: from}, nil
}

func (b *Bus) Write(m Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	_ = b.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return b.conn.WriteMessage(websocket.TextMessage, data)
}

// PublishTurn sends t as a "turn" message. Failures are logged, never
// returned; the bus is an observer.
func (b *Bus) PublishTurn(t dialogue.Turn) {
	m := TurnMessage(b.from, t)
	if err := b.Write(m); err != nil {
		log.Warn("Failed to publish turn", "turn", t.ID, "err", err)
	}
}

func TurnMessage(from string, t dialogue.Turn) Message {
	m := Message{
		From:     from,
		Kind:     "turn",
		Content:  t.Command,
		Turn:     t.ID,
		Language: t.Language.Recognition,
		Reply:    t.Reply,
		Outcome:  string(t.Outcome),
	}
	if t.Err != nil {
		m.Error = t.Err.Error()
	}
	return m
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = b.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return b.conn.Close()
}
