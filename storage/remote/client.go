// Package remote talks to the hosted backend-as-a-service: GoTrue for auth, PostgREST for rows & RPCs.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/coachdesk/core"
)

const (
	apiAuth = "auth"
	apiRest = "rest"

	authPath = "/auth/v1"
	restPath = "/rest/v1"
)

// Client is a thin HTTP client of the remote service. Every request carries the project API key;
// the bearer token is the signed-in user's access token when there is one.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	metrics *Metrics
}

func NewClient(conf *core.Config, metrics *Metrics) *Client {
	return &Client{
		baseURL: conf.Remote.URL,
		apiKey:  conf.Remote.APIKey,
		http:    &http.Client{Timeout: conf.Remote.Timeout},
		metrics: metrics,
	}
}

// APIError is an error response of the remote service.
// PostgREST fills Code & Message, GoTrue either Msg or Err & ErrorDescription.
type APIError struct {
	Status           int    `json:"-"`
	Code             string `json:"code"`
	Message          string `json:"message"`
	Details          string `json:"details"`
	Hint             string `json:"hint"`
	Msg              string `json:"msg"`
	Err              string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e *APIError) Error() string {
	for _, m := range []string{e.Message, e.Msg, e.ErrorDescription, e.Err} {
		if m != "" {
			return m
		}
	}
	return http.StatusText(e.Status)
}

func (e *APIError) UnmarshalJSON(data []byte) error {
	type alias APIError
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	status := e.Status
	*e = APIError(a)
	e.Status = status

	// GoTrue sends numeric codes in "code" along with "msg"
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err == nil {
		if _, ok := raw["code"].(float64); ok {
			e.Code = ""
		}
	}
	return nil
}

type request struct {
	api     string
	method  string
	path    string // relative to the API root
	query   url.Values
	body    interface{}
	token   string // overrides the token of the context
	headers map[string]string
}

func (r request) op() string {
	return r.api + " " + r.method + " " + r.path
}

// do sends the request and decodes the JSON response into out (if not nil).
// Failures are mapped to core errors: transport failures & 5xx to *core.FetchError,
// rejected credentials to *core.AuthError, other rejections to *core.ValidationError.
func (c *Client) do(ctx context.Context, r request, out interface{}) (http.Header, error) {
	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return nil, errors.Wrap(err, "encoding request body")
		}
		body = bytes.NewReader(data)
	}

	root := restPath
	if r.api == apiAuth {
		root = authPath
	}
	u := c.baseURL + root + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token := r.token
	if token == "" {
		if tok, ok := accessToken(ctx); ok {
			token = tok
		} else {
			token = c.apiKey
		}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		c.metrics.observe(r.api, r.method, 0, time.Since(start))
		return nil, core.NewFetchError(r.op(), err)
	}
	defer func() { _ = res.Body.Close() }()
	c.metrics.observe(r.api, r.method, res.StatusCode, time.Since(start))

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, core.NewFetchError(r.op(), err)
	}

	if res.StatusCode >= http.StatusBadRequest {
		return nil, c.mapError(r, res.StatusCode, data)
	}
	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return nil, core.NewFetchError(r.op(), errors.Wrap(err, "decoding response"))
		}
	}
	return res.Header, nil
}

func (c *Client) mapError(r request, status int, data []byte) error {
	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(data, apiErr); err != nil {
		apiErr.Message = strings.TrimSpace(string(data))
	}

	switch {
	case status >= http.StatusInternalServerError || status == http.StatusTooManyRequests:
		return core.NewFetchError(r.op(), apiErr)
	case r.api == apiAuth:
		return core.NewAuthError(apiErr.Error(), apiErr)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return core.NewAuthError(apiErr.Error(), apiErr)
	default:
		return core.NewValidationError(apiErr)
	}
}

// eq builds a PostgREST equality filter.
func eq(val string) string {
	return "eq." + val
}
