// Package transport talks to the GitHub REST API.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JonnyShabli/ghsync/internal/models"
	"github.com/JonnyShabli/ghsync/pkg/logster"
	"github.com/JonnyShabli/ghsync/pkg/metrics"
)

const (
	DefaultBaseURL   = "https://api.github.com"
	DefaultUserAgent = "ghsync"
	DefaultTimeout   = 30 * time.Second
	DefaultWorkers   = 4
	DefaultMaxPages  = 10

	acceptHeader = "application/vnd.github+json"
	maxErrorBody = 512
)

var (
	nextLinkRe = regexp.MustCompile(`<([^>]+)>\s*;\s*rel="next"`)
	tokenRe    = regexp.MustCompile(`(access_token=)[^&#\s"]*`)
)

type Client struct {
	logger  logster.Logger
	metrics *metrics.Metrics
}

func NewClient(logger logster.Logger, m *metrics.Metrics) *Client {
	return &Client{
		logger:  logger.WithField("Layer", "Transport"),
		metrics: m,
	}
}

// Send fetches every request of the batch, following pagination, and groups
// the pages by destination. Requests are fetched concurrently but the result
// only comes back once the whole batch is done, in batch order.
func (c *Client) Send(ctx context.Context, reqs []models.PendingRequest) ([]models.Response, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	workers := reqs[0].Connection.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	results := make([][]models.Page, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			pages, err := c.fetchAll(gctx, req)
			if err != nil {
				return err
			}
			results[i] = pages
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return group(reqs, results), nil
}

// group merges the pages of requests sharing a destination.
func group(reqs []models.PendingRequest, results [][]models.Page) []models.Response {
	var responses []models.Response
	index := make(map[string]int)
	for i, req := range reqs {
		if req.Dest != "" {
			if at, ok := index[req.Dest]; ok {
				responses[at].Pages = append(responses[at].Pages, results[i]...)
				continue
			}
			index[req.Dest] = len(responses)
		}
		responses = append(responses, models.Response{
			Dest:  req.Dest,
			Pages: results[i],
			Task:  req.Task,
		})
	}
	return responses
}

func (c *Client) fetchAll(ctx context.Context, req models.PendingRequest) ([]models.Page, error) {
	conn := req.Connection
	maxPages := conn.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	target, err := buildURL(conn, req.Src)
	if err != nil {
		return nil, err
	}
	key := pageKey(req.Src, "", 1)

	var pages []models.Page
	for {
		data, next, err := c.get(ctx, conn, target)
		if err != nil {
			return nil, err
		}
		pages = append(pages, models.Page{Key: key, Data: data})

		if next == "" {
			break
		}
		if len(pages) >= maxPages {
			c.logger.Warnf("%s: stopped after %d pages", stripQuery(req.Src), maxPages)
			break
		}
		target = next
		key = pageKey(req.Src, next, len(pages)+1)
	}

	return pages, nil
}

func (c *Client) get(ctx context.Context, conn models.Connection, target string) (json.RawMessage, string, error) {
	timeout := time.Duration(conn.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := &http.Client{Timeout: timeout}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", scrub(err))
	}
	request.Header.Set("Accept", acceptHeader)
	userAgent := conn.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	request.Header.Set("User-Agent", userAgent)

	c.metrics.AddRequests(1)
	response, err := client.Do(request)
	if err != nil {
		return nil, "", classify(redact(target), scrub(err))
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, "", classify(redact(target), err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, "", newStatusError(redact(target), response.StatusCode, msg)
	}

	if !json.Valid(body) {
		return nil, "", newDecodeError(redact(target), fmt.Errorf("body is not JSON"))
	}

	c.logger.Debugf("GET %s -> %s", redact(target), response.Status)
	return json.RawMessage(body), nextLink(response.Header.Get("Link")), nil
}

func buildURL(conn models.Connection, src string) (string, error) {
	base := conn.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	raw := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(src, "/")

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", redact(raw), scrub(err))
	}
	if conn.PerPage > 0 {
		q := u.Query()
		if q.Get("per_page") == "" {
			q.Set("per_page", fmt.Sprint(conn.PerPage))
			u.RawQuery = q.Encode()
		}
	}
	return u.String(), nil
}

func nextLink(header string) string {
	m := nextLinkRe.FindStringSubmatch(header)
	if m == nil {
		return ""
	}
	return m[1]
}

// pageKey identifies a page by its source path, without filters or token.
// The first page is the bare path. Follow-up pages carry what the next link
// changed in the query (page number or cursor), or their position when the
// link changed nothing visible.
func pageKey(src, link string, n int) string {
	key := stripQuery(src)
	if n <= 1 {
		return key
	}
	if q := cursorQuery(src, link); q != "" {
		return key + "?" + q
	}
	return fmt.Sprintf("%s?page=%d", key, n)
}

// cursorQuery returns the query of link minus per_page, access_token and
// every parameter already present with the same value in src.
func cursorQuery(src, link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Del("per_page")
	q.Del("access_token")

	if i := strings.IndexByte(src, '?'); i >= 0 {
		base, err := url.ParseQuery(src[i+1:])
		if err == nil {
			for k := range base {
				if q.Get(k) == base.Get(k) {
					q.Del(k)
				}
			}
		}
	}
	return q.Encode()
}

func stripQuery(src string) string {
	if i := strings.IndexByte(src, '?'); i >= 0 {
		return src[:i]
	}
	return src
}

// redact hides the access token in URLs and messages that end up in logs and
// errors.
func redact(raw string) string {
	return tokenRe.ReplaceAllString(raw, "${1}REDACTED")
}

// scrub redacts the URL a *url.Error carries, since its message embeds it.
func scrub(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		uerr.URL = redact(uerr.URL)
	}
	return err
}
