package stt

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"bivox/pkg/audioconv"
)

const defaultGoogleURL = "https://www.google.com/speech-api/v2/recognize"

// Google calls the Google speech v2 web endpoint.
type Google struct {
	client  *http.Client
	key     string
	baseURL string
}

var _ Recognizer = (*Google)(nil)

type GoogleOption func(*Google)

// WithHTTPClient replaces http.DefaultClient, e.g. with a proxied client.
func WithHTTPClient(c *http.Client) GoogleOption {
	return func(g *Google) { g.client = c }
}

// WithBaseURL points the recognizer at another endpoint. Used by tests.
func WithBaseURL(u string) GoogleOption {
	return func(g *Google) { g.baseURL = u }
}

func NewGoogle(key string, opts ...GoogleOption) *Google {
	g := &Google{
		client:  http.DefaultClient,
		key:     key,
		baseURL: defaultGoogleURL,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *Google) Recognize(ctx context.Context, pcm []int16, sampleRate int, tag string) (Alternative, error) {
	if len(pcm) == 0 {
		return Alternative{}, ErrNoSpeech
	}

	q := url.Values{}
	q.Set("client", "chromium")
	q.Set("lang", tag)
	q.Set("key", g.key)
	q.Set("pFilter", "0")
	q.Set("output", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"?"+q.Encode(), bytes.NewReader(audioconv.BytesLE(pcm)))
	if err != nil {
		return Alternative{}, fmt.Errorf("google stt: build request: %w", err)
	}
	req.Header.Set("Content-Type", fmt.Sprintf("audio/l16; rate=%d", sampleRate))

	resp, err := g.client.Do(req)
	if err != nil {
		return Alternative{}, fmt.Errorf("google stt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Alternative{}, fmt.Errorf("google stt: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return parseGoogle(resp.Body)
}

// parseGoogle reads the newline separated JSON objects of the v2 endpoint.
// The first object with a non-empty result carries the hypotheses.
func parseGoogle(r io.Reader) (Alternative, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || !gjson.Valid(line) {
			continue
		}

		top := gjson.Get(line, "result.0.alternative.0")
		if !top.Exists() {
			continue
		}

		alt := Alternative{Text: strings.TrimSpace(top.Get("transcript").String())}
		if c := top.Get("confidence"); c.Exists() {
			v := c.Float()
			alt.Confidence = &v
		}
		if alt.Text == "" {
			return Alternative{}, ErrNoSpeech
		}
		return alt, nil
	}

	if err := sc.Err(); err != nil {
		return Alternative{}, fmt.Errorf("google stt: read response: %w", err)
	}

	return Alternative{}, ErrNoSpeech
}
