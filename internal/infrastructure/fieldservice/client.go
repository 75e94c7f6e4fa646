package fieldservice

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/example/fsmgate/internal/internaltypes"
)

var logger = loggo.GetLogger("fsmgate.fieldservice")

const (
	defaultPageSize = 200
	maxPages        = 20
	maxErrorBody    = 512
)

type Options struct {
	AuthURL      string
	APIURL       string
	ClientID     string
	ClientSecret string
	TenantID     string
	AppKey       string

	// RPS caps outbound requests per second; 0 means unlimited.
	RPS     float64
	Timeout time.Duration

	// HTTPClient overrides the default client, used by tests.
	HTTPClient *http.Client
}

// Client talks to the tenant-scoped vendor REST API.
type Client struct {
	http    *http.Client
	base    string
	tenant  string
	appKey  string
	limiter *rate.Limiter
	tokens  *tokens
}

func New(o Options) *Client {
	hc := o.HTTPClient
	if hc == nil {
		timeout := o.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	limit := rate.Inf
	if o.RPS > 0 {
		limit = rate.Limit(o.RPS)
	}
	return &Client{
		http:    hc,
		base:    strings.TrimRight(o.APIURL, "/"),
		tenant:  o.TenantID,
		appKey:  o.AppKey,
		limiter: rate.NewLimiter(limit, 1),
		tokens: &tokens{
			hc: hc,
			cfg: clientcredentials.Config{
				ClientID:     o.ClientID,
				ClientSecret: o.ClientSecret,
				TokenURL:     o.AuthURL,
				AuthStyle:    oauth2.AuthStyleInParams,
			},
		},
	}
}

// tokens caches the client-credentials token until it expires or the
// vendor rejects it.
type tokens struct {
	cfg clientcredentials.Config
	hc  *http.Client

	mu  sync.Mutex
	tok *oauth2.Token
}

// token returns the cached token while it is valid and otherwise fetches
// a new one under ctx. Concurrent callers wait for a single refresh.
func (t *tokens) token(ctx context.Context) (*oauth2.Token, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tok.Valid() {
		return t.tok, nil
	}

	tok, err := t.cfg.Token(context.WithValue(ctx, oauth2.HTTPClient, t.hc))
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Annotate(ctx.Err(), "vendor authentication")
		}
		var re *oauth2.RetrieveError
		if stderrors.As(err, &re) && re.Response != nil {
			return nil, internaltypes.New(internaltypes.KindUpstreamAuth,
				"vendor authentication failed (status=%d): %s", re.Response.StatusCode, truncate(re.Body))
		}
		return nil, internaltypes.New(internaltypes.KindUpstreamAuth, "vendor authentication failed: %v", err)
	}
	t.tok = tok
	return tok, nil
}

func (t *tokens) reset() {
	t.mu.Lock()
	t.tok = nil
	t.mu.Unlock()
}

// Ping fetches a token, which is enough to prove the credentials work.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Trace(err)
	}
	_, err := c.tokens.token(ctx)
	return err
}

func (c *Client) path(module, resource string, args ...any) string {
	return fmt.Sprintf("%s/v2/tenant/%s/%s", module, url.PathEscape(c.tenant), fmt.Sprintf(resource, args...))
}

func values(q any) (url.Values, error) {
	if q == nil {
		return url.Values{}, nil
	}
	v, err := query.Values(q)
	return v, errors.Annotate(err, "encode query")
}

// do sends one request. A 401 drops the cached token and replays the
// request once with a fresh one.
func (c *Client) do(ctx context.Context, method, path string, q url.Values, in, out any) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Annotate(err, "encode request")
		}
		body = b
	}

	for attempt := 1; ; attempt++ {
		status, respBody, err := c.send(ctx, method, path, q, body)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized && attempt == 1 {
			logger.Infof("%s %s: token rejected, refreshing", method, path)
			c.tokens.reset()
			continue
		}
		switch {
		case status == http.StatusNotFound:
			return internaltypes.New(internaltypes.KindNotFound, "vendor %s %s: not found", method, path)
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return internaltypes.New(internaltypes.KindUpstreamAuth, "vendor %s %s (status=%d): %s", method, path, status, truncate(respBody))
		case status < 200 || status >= 300:
			return internaltypes.New(internaltypes.KindUpstream, "vendor %s %s (status=%d): %s", method, path, status, truncate(respBody))
		}
		if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return internaltypes.New(internaltypes.KindUpstream, "vendor %s %s: malformed response: %v", method, path, err)
		}
		return nil
	}
}

func (c *Client) send(ctx context.Context, method, path string, q url.Values, body []byte) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, errors.Trace(err)
	}
	tok, err := c.tokens.token(ctx)
	if err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+"/"+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, errors.Trace(err)
	}
	if len(q) > 0 {
		req.URL.RawQuery = q.Encode()
	}
	req.Header.Set("ST-App-Key", c.appKey)
	req.Header.Set("accept", "application/json")
	if body != nil {
		req.Header.Set("content-type", "application/json")
	}
	tok.SetAuthHeader(req)

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return 0, nil, internaltypes.New(internaltypes.KindUpstream, "vendor %s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, internaltypes.New(internaltypes.KindUpstream, "vendor %s %s: read body: %v", method, path, err)
	}
	logger.Debugf("%s %s -> %d (%s)", method, path, res.StatusCode, time.Since(start))
	return res.StatusCode, b, nil
}

// listAll walks a paged list endpoint.
func listAll[T any](ctx context.Context, c *Client, path string, q url.Values) ([]T, error) {
	if q == nil {
		q = url.Values{}
	}
	var out []T
	for p := 1; p <= maxPages; p++ {
		q.Set("page", fmt.Sprint(p))
		q.Set("pageSize", fmt.Sprint(defaultPageSize))
		var pg page[T]
		if err := c.do(ctx, http.MethodGet, path, q, nil, &pg); err != nil {
			return nil, err
		}
		out = append(out, pg.Data...)
		if !pg.HasMore {
			return out, nil
		}
	}
	logger.Warningf("%s: stopped after %d pages", path, maxPages)
	return out, nil
}

func truncate(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return s
}
