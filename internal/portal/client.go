// Package portal is an HTTP client for the Dropscan web portal.
//
// The portal has no public API. The client logs in through the HTML form
// (CSRF token from the login page, session cookie) and then uses the JSON
// endpoints under /services that the web frontend uses.
package portal

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"dropscan-go/internal/ds"
)

// DefaultBaseURL is the production portal.
const DefaultBaseURL = "https://secure.dropscan.de"

var (
	// ErrAuthFailed is returned when the portal rejects the credentials.
	ErrAuthFailed = errors.New("portal login failed")
	// ErrNotLoggedIn is returned by calls that need a scanbox before Login succeeded.
	ErrNotLoggedIn = errors.New("not logged in")
)

// StatusError reports a non-success HTTP status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d on %s %s", e.StatusCode, e.Method, e.URL)
}

// Options configures a Client. Zero values select the defaults.
type Options struct {
	BaseURL            string
	ListCount          int
	Proxy              string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// Client talks to the portal with one cookie session.
type Client struct {
	baseURL    string
	listCount  int
	httpClient *http.Client
	logger     ds.Logger
	scanbox    string
}

// NewClient creates a Client. Call Login before anything else.
func NewClient(opts Options, logger ds.Logger) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.ListCount <= 0 {
		opts.ListCount = 20
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parsing proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		listCount: opts.ListCount,
		httpClient: &http.Client{
			Jar:       jar,
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		logger: logger,
	}, nil
}

// ScanboxID returns the scanbox selected at login.
func (c *Client) ScanboxID() string {
	return c.scanbox
}

// Login authenticates and selects the first scanbox of the account.
func (c *Client) Login(ctx context.Context, user, password string) error {
	c.logger.Debug("fetching login form", "url", c.baseURL+"/login")
	page, err := c.get(ctx, c.baseURL+"/login")
	if err != nil {
		return fmt.Errorf("fetching login form: %w", err)
	}
	token, err := csrfToken(page)
	if err != nil {
		return err
	}

	form := url.Values{
		"user[email]":        {user},
		"user[password]":     {password},
		"user[remember_me]":  {"0"},
		"authenticity_token": {token},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting login form: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	// A successful login redirects to the mailing list; a failed one renders the form again.
	final := resp.Request.URL
	c.logger.Debug("login response", "status", resp.StatusCode, "url", final.String())
	if resp.StatusCode != http.StatusOK || !strings.HasSuffix(final.Path, "/mailings") {
		return ErrAuthFailed
	}

	return c.selectScanbox(ctx)
}

func (c *Client) selectScanbox(ctx context.Context) error {
	var boxes []scanboxJSON
	if err := c.getJSON(ctx, "/services/scanboxes", &boxes); err != nil {
		return fmt.Errorf("listing scanboxes: %w", err)
	}
	if len(boxes) == 0 {
		return fmt.Errorf("account has no scanbox")
	}
	c.scanbox = string(boxes[0].ID)

	names := make([]string, 0, len(boxes[0].Recipients))
	for _, r := range boxes[0].Recipients {
		names = append(names, r.Name)
	}
	c.logger.Info("logged in", "scanbox", c.scanbox, "recipients", strings.Join(names, ","))
	return nil
}

// List returns the mailings in one inbox, newest first.
func (c *Client) List(ctx context.Context, filter ds.ListFilter) ([]*ds.Mailing, error) {
	if c.scanbox == "" {
		return nil, ErrNotLoggedIn
	}
	q := url.Values{
		"sort_dir":     {"desc"},
		"sorting":      {"created_at"},
		"scanbox_ids":  {c.scanbox},
		"statuses":     {filter.String()},
		"max_per_page": {strconv.Itoa(c.listCount)},
	}
	var raw []mailingJSON
	if err := c.getJSON(ctx, "/services/mailings?"+q.Encode(), &raw); err != nil {
		return nil, fmt.Errorf("listing %s mailings: %w", filter, err)
	}

	mailings := make([]*ds.Mailing, 0, len(raw))
	for i := range raw {
		m := raw[i].toMailing()
		if m.Status == ds.StatusUnknown {
			c.logger.Warn("unknown mailing status", "barcode", m.Barcode, "status", raw[i].Status)
		}
		mailings = append(mailings, m)
	}
	c.logger.Debug("mailings listed", "filter", filter.String(), "count", len(mailings))
	return mailings, nil
}

// ListBatches returns the forwarding batches of the account, sent ones included.
func (c *Client) ListBatches(ctx context.Context) ([]*ds.Batch, error) {
	var raw []batchJSON
	if err := c.getJSON(ctx, "/services/forwarding_batches?max_per_page=100&page=0", &raw); err != nil {
		return nil, fmt.Errorf("listing forwarding batches: %w", err)
	}
	batches := make([]*ds.Batch, 0, len(raw))
	for i := range raw {
		batches = append(batches, raw[i].toBatch())
	}
	return batches, nil
}

// AddToBatch requests forwarding of a mailing with the given batch.
func (c *Client) AddToBatch(ctx context.Context, mailingID, batchID string) error {
	body, err := json.Marshal(requestForwardJSON{ForwardingBatchID: idValue(batchID)})
	if err != nil {
		return fmt.Errorf("marshaling request body: %w", err)
	}
	target := c.baseURL + "/services/mailings/" + url.PathEscape(mailingID) + "/request_forward"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request POST %s: %w", target, err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Method: http.MethodPost, URL: target, StatusCode: resp.StatusCode}
	}
	return nil
}

// ArtifactURL resolves where an artifact can be downloaded.
func (c *Client) ArtifactURL(m *ds.Mailing, kind ds.Kind) (string, bool) {
	var u string
	switch kind {
	case ds.KindThumbnail:
		u = m.ThumbnailURL
	case ds.KindEnvelope:
		u = m.EnvelopeURL
	case ds.KindPDF:
		if !m.IsScanned() {
			return "", false
		}
		u = "/services/mailings/" + url.PathEscape(m.ID) + "/pdf?src="
	default:
		return "", false
	}
	if u == "" {
		return "", false
	}
	if strings.HasPrefix(u, "/") {
		u = c.baseURL + u
	}
	return u, true
}

// Download streams the body at rawURL to w.
func (c *Client) Download(ctx context.Context, rawURL string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Method: http.MethodGet, URL: rawURL, StatusCode: resp.StatusCode}
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/html")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Method: http.MethodGet, URL: rawURL, StatusCode: resp.StatusCode}
	}
	return body, nil
}

func (c *Client) getJSON(ctx context.Context, path string, result any) error {
	body, err := c.get(ctx, c.baseURL+path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshaling response from GET %s: %w", path, err)
	}
	return nil
}

// csrfToken extracts <meta name="csrf-token" content="..."> from a page.
func csrfToken(page []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parsing login form: %w", err)
	}

	var token string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if token != "" {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Meta {
			var name, content string
			for _, a := range n.Attr {
				switch a.Key {
				case "name":
					name = a.Val
				case "content":
					content = a.Val
				}
			}
			if name == "csrf-token" {
				token = content
				return
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	if token == "" {
		return "", fmt.Errorf("login form has no csrf token")
	}
	return token, nil
}

var _ ds.Catalog = (*Client)(nil)
