package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completionServer(t *testing.T, status int, body string, got *chatRequest) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		if got != nil {
			if err := json.Unmarshal(raw, got); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
}

const okBody = `{"id":"1","object":"chat.completion","created":1,"model":"sonar",
"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  It is sunny in Cleveland. \n"}}]}`

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()

	c, err := New(Config{APIKey: "k", BaseURL: url, Model: "sonar", SystemPrompt: "Be brief."})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestComplete_SendsSystemAndSingleUserTurn(t *testing.T) {
	var req chatRequest
	srv := completionServer(t, http.StatusOK, okBody, &req)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	reply, err := c.Complete(context.Background(), "what is the weather")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply != "It is sunny in Cleveland." {
		t.Errorf("reply = %q", reply)
	}

	if req.Model != "sonar" {
		t.Errorf("model = %q, want sonar", req.Model)
	}
	if len(req.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(req.Messages))
	}
	if req.Messages[0].Role != "system" || req.Messages[0].Content != "Be brief." {
		t.Errorf("messages[0] = %+v", req.Messages[0])
	}
	if req.Messages[1].Role != "user" || req.Messages[1].Content != "what is the weather" {
		t.Errorf("messages[1] = %+v", req.Messages[1])
	}
}

func TestComplete_NoHistoryAcrossCalls(t *testing.T) {
	var req chatRequest
	srv := completionServer(t, http.StatusOK, okBody, &req)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	for _, cmd := range []string{"first", "second"} {
		if _, err := c.Complete(context.Background(), cmd); err != nil {
			t.Fatalf("Complete(%q): %v", cmd, err)
		}
	}
	if len(req.Messages) != 2 || req.Messages[1].Content != "second" {
		t.Errorf("second request carried %+v, want system + second only", req.Messages)
	}
}

func TestComplete_ServerError(t *testing.T) {
	srv := completionServer(t, http.StatusInternalServerError, `{"error":{"message":"boom"}}`, nil)
	defer srv.Close()

	if _, err := newTestClient(t, srv.URL).Complete(context.Background(), "hi"); err == nil {
		t.Fatal("expected error")
	}
}

func TestComplete_EmptyChoices(t *testing.T) {
	srv := completionServer(t, http.StatusOK, `{"id":"1","object":"chat.completion","created":1,"model":"sonar","choices":[]}`, nil)
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Complete(context.Background(), "hi")
	if !errors.Is(err, ErrEmptyReply) {
		t.Fatalf("err = %v, want ErrEmptyReply", err)
	}
}

func TestNew_RequiresKeyAndModel(t *testing.T) {
	if _, err := New(Config{Model: "sonar"}); err == nil {
		t.Error("expected error without api key")
	}
	if _, err := New(Config{APIKey: "k"}); err == nil {
		t.Error("expected error without model")
	}
}
