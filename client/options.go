package client

import (
	"net/http"

	"github.com/asyd/jscep-client-bc-jdk6/scep"
)

// Option configures a Client at construction time, mirroring the
// functional-options constructor the certificate authority client uses
// (ca.NewClient / ca.ClientOption).
type Option func(*Client)

// WithProfile selects a CA profile, sent as the "message" query parameter
// on the capability/chain requests and, when set, as an authenticated
// attribute on every signed message (spec §3).
func WithProfile(profile string) Option {
	return func(c *Client) { c.profile = profile }
}

// WithPreferredCipher narrows the negotiated content-encryption algorithm
// (spec §4.3). It only takes effect if the CA also advertises it; it
// never widens the choice beyond what the CA supports.
func WithPreferredCipher(cipher scep.Capability) Option {
	return func(c *Client) { c.preferredCipher = cipher }
}

// WithPreferredDigest narrows the negotiated message digest algorithm
// (spec §4.4), subject to the same CA-support constraint.
func WithPreferredDigest(digest scep.Capability) Option {
	return func(c *Client) { c.preferredDigest = digest }
}

// WithHTTPClient overrides the *http.Client used for every transport
// call. If unset, transport.New's default (internal/httptransport.New)
// applies.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}
