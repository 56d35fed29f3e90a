package stt

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseGoogle(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantText string
		wantConf float64
		hasConf  bool
		wantErr  error
	}{
		{
			name:     "confidence reported",
			body:     "{\"result\":[]}\n{\"result\":[{\"alternative\":[{\"transcript\":\"what time is it\",\"confidence\":0.91},{\"transcript\":\"what time is this\"}],\"final\":true}],\"result_index\":0}\n",
			wantText: "what time is it",
			wantConf: 0.91,
			hasConf:  true,
		},
		{
			name:     "confidence missing",
			body:     "{\"result\":[]}\n{\"result\":[{\"alternative\":[{\"transcript\":\"vanakkam\"}],\"final\":true}]}\n",
			wantText: "vanakkam",
		},
		{
			name:    "only empty result",
			body:    "{\"result\":[]}\n",
			wantErr: ErrNoSpeech,
		},
		{
			name:    "empty body",
			body:    "",
			wantErr: ErrNoSpeech,
		},
		{
			name:    "blank transcript",
			body:    "{\"result\":[{\"alternative\":[{\"transcript\":\"  \"}]}]}\n",
			wantErr: ErrNoSpeech,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alt, err := parseGoogle(strings.NewReader(tt.body))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if alt.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", alt.Text, tt.wantText)
			}
			if (alt.Confidence != nil) != tt.hasConf {
				t.Fatalf("Confidence = %v, want present=%v", alt.Confidence, tt.hasConf)
			}
			if tt.hasConf && *alt.Confidence != tt.wantConf {
				t.Errorf("Confidence = %v, want %v", *alt.Confidence, tt.wantConf)
			}
		})
	}
}

func TestGoogle_RecognizeSendsPCM(t *testing.T) {
	var (
		gotLang, gotType string
		gotBody          []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLang = r.URL.Query().Get("lang")
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		io.WriteString(w, "{\"result\":[]}\n{\"result\":[{\"alternative\":[{\"transcript\":\"stop\",\"confidence\":0.5}]}]}\n")
	}))
	defer srv.Close()

	g := NewGoogle("k", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	alt, err := g.Recognize(context.Background(), []int16{1, -2}, 16000, "en-US")
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if alt.Text != "stop" {
		t.Errorf("Text = %q, want stop", alt.Text)
	}
	if gotLang != "en-US" {
		t.Errorf("lang = %q, want en-US", gotLang)
	}
	if gotType != "audio/l16; rate=16000" {
		t.Errorf("Content-Type = %q", gotType)
	}
	if len(gotBody) != 4 || int16(binary.LittleEndian.Uint16(gotBody[2:])) != -2 {
		t.Errorf("body = %v, want little-endian samples", gotBody)
	}
}

func TestGoogle_ServerErrorIsNotNoSpeech(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusForbidden)
	}))
	defer srv.Close()

	g := NewGoogle("k", WithBaseURL(srv.URL))
	_, err := g.Recognize(context.Background(), []int16{1}, 16000, "ta-IN")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrNoSpeech) {
		t.Errorf("err = %v, must not be ErrNoSpeech", err)
	}
}
