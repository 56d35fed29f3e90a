package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"unicode/utf8"
)

const (
	defaultGTTSURL = "https://translate.google.com/translate_tts"

	// maxChunk is the longest text the endpoint accepts per request.
	maxChunk = 100
)

// FilePlayer plays an audio file to completion.
type FilePlayer interface {
	PlayFile(ctx context.Context, path string) error
}

// GTTS fetches MP3 speech from the Google Translate endpoint into a temporary
// file, plays it and removes the file.
type GTTS struct {
	client  *http.Client
	player  FilePlayer
	baseURL string
	tempDir string
}

var _ Speaker = (*GTTS)(nil)

func NewGTTS(client *http.Client, player FilePlayer) *GTTS {
	if client == nil {
		client = http.DefaultClient
	}
	return &GTTS{client: client, player: player, baseURL: defaultGTTSURL}
}

func (g *GTTS) Speak(ctx context.Context, text, lang string) error {
	chunks := splitText(text, maxChunk)
	if len(chunks) == 0 {
		return nil
	}

	f, err := os.CreateTemp(g.tempDir, "bivox-*.mp3")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(f.Name())

	for i, chunk := range chunks {
		if err := g.fetch(ctx, f, chunk, lang, i, len(chunks)); err != nil {
			f.Close()
			return err
		}
	}
	if err := f.Close(); err != nil {
		return err
	}

	return g.player.PlayFile(ctx, f.Name())
}

func (g *GTTS) fetch(ctx context.Context, w io.Writer, text, lang string, idx, total int) error {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", lang)
	q.Set("q", text)
	q.Set("total", fmt.Sprint(total))
	q.Set("idx", fmt.Sprint(idx))
	q.Set("textlen", fmt.Sprint(utf8.RuneCountInString(text)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("gtts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gtts: status %d", resp.StatusCode)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("gtts: read audio: %w", err)
	}

	return nil
}

// splitText breaks text into pieces of at most limit runes, preferring word
// boundaries. Words longer than limit are cut.
func splitText(text string, limit int) []string {
	var (
		out []string
		cur strings.Builder
		n   int
	)

	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
			n = 0
		}
	}

	for _, word := range strings.Fields(text) {
		runes := []rune(word)
		for len(runes) > limit {
			flush()
			out = append(out, string(runes[:limit]))
			runes = runes[limit:]
		}

		wl := len(runes)
		if n > 0 && n+1+wl > limit {
			flush()
		}
		if n > 0 {
			cur.WriteByte(' ')
			n++
		}
		cur.WriteString(string(runes))
		n += wl
	}
	flush()

	return out
}
