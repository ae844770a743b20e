package voice

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	googleTTSURL = "https://translate.google.com/translate_tts"
	// MaxChunk is the longest text the free endpoint accepts per request.
	MaxChunk = 100
)

// GoogleTTS is the free voice. Text is sent in short chunks and the MP3
// answers are concatenated.
type GoogleTTS struct {
	Lang    string
	BaseURL string
	Client  *http.Client
}

func NewGoogleTTS(lang string) *GoogleTTS {
	if lang == "" {
		lang = "es"
	}
	return &GoogleTTS{
		Lang:    lang,
		BaseURL: googleTTSURL,
		Client:  http.DefaultClient,
	}
}

func (g *GoogleTTS) Name() string { return "google-tts" }

func (g *GoogleTTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	chunks := ChunkText(text, MaxChunk)
	var out bytes.Buffer
	for i, chunk := range chunks {
		if err := g.fetch(ctx, chunk, i, len(chunks), &out); err != nil {
			return nil, err
		}
	}
	return out.Bytes(), nil
}

func (g *GoogleTTS) fetch(ctx context.Context, chunk string, idx, total int, w io.Writer) error {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("q", chunk)
	q.Set("tl", g.Lang)
	q.Set("client", "tw-ob")
	q.Set("idx", strconv.Itoa(idx))
	q.Set("total", strconv.Itoa(total))
	q.Set("textlen", strconv.Itoa(len([]rune(chunk))))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := g.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkResponse(g.Name(), resp); err != nil {
		return err
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

// ChunkText splits text on word boundaries into pieces of at most max
// characters. Words longer than max are cut.
func ChunkText(text string, max int) []string {
	var chunks []string
	current := ""
	flush := func() {
		if current != "" {
			chunks = append(chunks, current)
			current = ""
		}
	}

	for _, word := range strings.Fields(text) {
		for len([]rune(word)) > max {
			flush()
			r := []rune(word)
			chunks = append(chunks, string(r[:max]))
			word = string(r[max:])
		}
		if current == "" {
			current = word
			continue
		}
		if len([]rune(current))+1+len([]rune(word)) > max {
			flush()
			current = word
			continue
		}
		current += " " + word
	}
	flush()
	return chunks
}
