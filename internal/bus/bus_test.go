package bus

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"bivox/internal/config"
	"bivox/internal/dialogue"
)

func newServer(t *testing.T) (string, <-chan Message) {
	t.Helper()

	got := make(chan Message, 4)
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var m Message
			if err := json.Unmarshal(data, &m); err == nil {
				got <- m
			}
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http"), got
}

func TestPublishTurn(t *testing.T) {
	url, got := newServer(t)

	b, err := Dial(context.Background(), url, "bivox")
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer b.Close()

	b.PublishTurn(dialogue.Turn{
		ID:       3,
		Command:  "weather",
		Language: config.Language{Name: "english", Recognition: "en-US", Speech: "en"},
		Outcome:  dialogue.OutcomeResponseFailed,
		Err:      errors.New("timeout"),
	})

	select {
	case m := <-got:
		want := Message{From: "bivox", Kind: "turn", Content: "weather", Turn: 3,
			Language: "en-US", Outcome: "response_failed", Error: "timeout"}
		if m != want {
			t.Errorf("message = %+v, want %+v", m, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestDialRejectsScheme(t *testing.T) {
	if _, err := Dial(context.Background(), "http://localhost:1", "bivox"); err == nil {
		t.Error("Dial(http) error = nil, want error")
	}
}

func TestTurnMessageOmitsEmptyError(t *testing.T) {
	m := TurnMessage("bivox", dialogue.Turn{ID: 1, Command: "hi", Reply: "hello", Outcome: dialogue.OutcomeReplied})

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(data), `"error"`) {
		t.Errorf("json = %s, want no error field", data)
	}
}
