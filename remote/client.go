// Package remote talks to the book HTTP API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"grimoire/book"
	"grimoire/config"
)

const (
	readPath          = "read_book_data.php"
	saveChapterPath   = "save_chapter.php"
	deleteChapterPath = "delete_chapter.php"
	saveMuralPath     = "save_mural.php"

	// responses larger than that are not book data
	maxBody = 32 << 20
	// characters of error response kept in the error
	maxMessage = 200
)

var (
	// ErrStatus is returned when server answers with non 2xx status.
	ErrStatus = errors.New("unexpected response status")
	// ErrRejected is returned when server answers 2xx but reports failure in
	// the body.
	ErrRejected = errors.New("request rejected by server")
)

// Client is stateless, it is safe to use from several goroutines.
type Client struct {
	log       *zap.Logger
	http      *http.Client
	base      *url.URL
	token     string
	userAgent string
}

type Option func(*Client)

// WithHTTPClient replaces default client built from configuration.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

func New(cfg *config.RemoteConfig, log *zap.Logger, opts ...Option) (*Client, error) {
	base := cfg.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("bad remote base url '%s': %w", cfg.BaseURL, err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		log:       log.Named("remote"),
		http:      &http.Client{Timeout: timeout},
		base:      u,
		token:     string(cfg.Token),
		userAgent: cfg.UserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) endpoint(name string) string {
	return c.base.ResolveReference(&url.URL{Path: name}).String()
}

func (c *Client) do(ctx context.Context, method, name string, body any) ([]byte, error) {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("unable to encode request for %s: %w", name, err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(name), rdr)
	if err != nil {
		return nil, fmt.Errorf("unable to build request for %s: %w", name, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if len(c.userAgent) > 0 {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if len(c.token) > 0 {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, name, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%s %s: unable to read response: %w", method, name, err)
	}
	c.log.Debug("Remote call", zap.String("method", method), zap.String("endpoint", name),
		zap.Int("status", resp.StatusCode), zap.Int("size", len(data)), zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode/100 != 2 {
		msg := strings.ToValidUTF8(strings.TrimSpace(string(data)), "")
		if r := []rune(msg); len(r) > maxMessage {
			msg = string(r[:maxMessage])
		}
		return nil, fmt.Errorf("%w: %s %s: %s %s", ErrStatus, method, name, resp.Status, msg)
	}
	return data, nil
}

// status is optional outcome some endpoints report in the body.
type status struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func checkOutcome(name string, data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil
	}
	var st status
	if err := json.Unmarshal(data, &st); err != nil {
		return nil
	}
	if st.Success != nil && !*st.Success || len(st.Error) > 0 {
		msg := st.Error
		if len(msg) == 0 {
			msg = st.Message
		}
		return fmt.Errorf("%w: %s: %s", ErrRejected, name, msg)
	}
	return nil
}

// Fetch reads the whole book.
func (c *Client) Fetch(ctx context.Context) (*book.Snapshot, error) {
	data, err := c.FetchRaw(ctx)
	if err != nil {
		return nil, err
	}
	s, err := book.Decode(data)
	if err != nil {
		return nil, err
	}
	s.FetchedAt = time.Now()
	return s, nil
}

// FetchRaw reads the book returning response body as is.
func (c *Client) FetchRaw(ctx context.Context) ([]byte, error) {
	return c.do(ctx, http.MethodGet, readPath, nil)
}

// SaveChapter creates or replaces chapter. Server assigns durable identifier
// to chapters sent with temporary one, the book must be re-read to learn it.
func (c *Client) SaveChapter(ctx context.Context, ch *book.Chapter) error {
	data, err := c.do(ctx, http.MethodPost, saveChapterPath, ch)
	if err != nil {
		return err
	}
	return checkOutcome(saveChapterPath, data)
}

// DeleteChapter removes chapter.
func (c *Client) DeleteChapter(ctx context.Context, id book.ID) error {
	data, err := c.do(ctx, http.MethodPost, deleteChapterPath, struct {
		ID book.ID `json:"id"`
	}{id})
	if err != nil {
		return err
	}
	return checkOutcome(deleteChapterPath, data)
}

// SaveMural replaces the mural record: title, author and women together.
func (c *Client) SaveMural(ctx context.Context, m *book.Mural) error {
	data, err := c.do(ctx, http.MethodPost, saveMuralPath, m)
	if err != nil {
		return err
	}
	return checkOutcome(saveMuralPath, data)
}
