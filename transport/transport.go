// Package transport implements the HTTP GET/POST adapter (spec §4.1)
// between the SCEP client and its endpoint. It does not know about CMS or
// SCEP semantics: it serializes an operation name plus an optional
// message body into a request, and returns the raw response body and
// content type for a request-specific content handler to interpret.
//
// Modeled on the certificate authority's ca.Client (ca/client.go):
// one *http.Client plus a base *url.URL, per-call URL construction via
// url.ResolveReference, and errors wrapped with github.com/pkg/errors at
// the point of failure.
package transport

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"github.com/asyd/jscep-client-bc-jdk6/internal/cast"
	"github.com/asyd/jscep-client-bc-jdk6/internal/httptransport"
)

// Method selects how a PKIOperation request is carried; the three
// non-transactional operations (GetCACaps, GetCACert, GetNextCACert) are
// always GET regardless of this setting.
type Method int

// The two transport methods the protocol defines.
const (
	GET Method = iota
	POST
)

// scepContentType is the content type POST bodies and PKIOperation
// responses use on the wire.
const scepContentType = "application/x-pki-message"

// Transport sends SCEP operations to a single endpoint. The core never
// retries a failed request (spec §4.1); retry policy, if any, belongs to
// the caller.
type Transport struct {
	Client   *http.Client
	Endpoint *url.URL
}

// New returns a Transport for endpoint. If client is nil, a client backed
// by httptransport.New (a fresh *http.Transport configured like
// http.DefaultTransport) is used.
func New(endpoint *url.URL, client *http.Client) *Transport {
	if client == nil {
		client = &http.Client{Transport: httptransport.New()}
	}
	return &Transport{Client: client, Endpoint: endpoint}
}

// Response is the raw, not-yet-interpreted result of a transport call.
type Response struct {
	ContentType string
	Body        []byte
	Size        int64
}

// GetOperation performs operation as a GET with the literal message value
// (used for the profile string of GetCACaps/GetCACert/GetNextCACert,
// which travel unencoded, per spec §6).
func (t *Transport) GetOperation(ctx context.Context, operation, message string) (*Response, error) {
	q := url.Values{"operation": {operation}}
	if message != "" {
		q.Set("message", message)
	}
	return t.get(ctx, q)
}

// SendPKIOperation sends a PKIOperation carrying the given CMS body,
// using GET (base64url-encoded in the query string) or POST (raw body),
// selected by method (spec §4.1, §4.6 transport selection rule).
func (t *Transport) SendPKIOperation(ctx context.Context, method Method, body []byte) (*Response, error) {
	if method == POST {
		return t.post(ctx, body)
	}
	q := url.Values{
		"operation": {"PKIOperation"},
		"message":   {base64.URLEncoding.EncodeToString(body)},
	}
	return t.get(ctx, q)
}

func (t *Transport) get(ctx context.Context, q url.Values) (*Response, error) {
	u := t.Endpoint.ResolveReference(&url.URL{RawQuery: q.Encode()})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "error building GET request to %s", u)
	}
	return t.do(req)
}

func (t *Transport) post(ctx context.Context, body []byte) (*Response, error) {
	u := t.Endpoint.ResolveReference(&url.URL{RawQuery: url.Values{"operation": {"PKIOperation"}}.Encode()})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(err, "error building POST request to %s", u)
	}
	req.Header.Set("Content-Type", scepContentType)
	return t.do(req)
}

func (t *Transport) do(req *http.Request) (*Response, error) {
	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s failed", req.Method, req.URL)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading response from %s", req.URL)
	}
	if resp.StatusCode >= 400 {
		return nil, errors.Errorf("%s %s returned status %d", req.Method, req.URL, resp.StatusCode)
	}

	return &Response{
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		Size:        cast.Int64(len(body)),
	}, nil
}
