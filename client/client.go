// Package client implements the client façade (spec §4.6, §4.7): binds
// identity, endpoint, trust callback and optional profile together, and
// exposes the five public operations. It performs capability discovery
// and caching, CA/RA chain resolution, and trust verdict caching; the
// cryptographic pipeline itself lives in envelope, message and
// transaction.
package client

import (
	"context"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"net/http"
	"net/url"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/asyd/jscep-client-bc-jdk6/envelope"
	"github.com/asyd/jscep-client-bc-jdk6/errs"
	"github.com/asyd/jscep-client-bc-jdk6/logging"
	"github.com/asyd/jscep-client-bc-jdk6/message"
	"github.com/asyd/jscep-client-bc-jdk6/request"
	"github.com/asyd/jscep-client-bc-jdk6/scep"
	"github.com/asyd/jscep-client-bc-jdk6/transaction"
	"github.com/asyd/jscep-client-bc-jdk6/transport"
)

// oidCRLDistributionPoints is the X.509v3 extension OID the original
// jscep client checks before allowing GetCRL (spec.md §9 / SPEC_FULL §C.1).
var oidCRLDistributionPoints = asn1.ObjectIdentifier{2, 5, 29, 31}

// Identity is the requester's certificate and matching private key (spec
// §3's ClientIdentity). Both must be RSA: the protocol requires it for
// signing and decrypting SCEP messages.
type Identity struct {
	Certificate *x509.Certificate
	PrivateKey  *rsa.PrivateKey
}

// TrustFunc is the trust callback contract (spec §3, §6): present a
// candidate CA certificate, observe a boolean verdict.
type TrustFunc func(candidate *x509.Certificate) bool

// Client is a passive holder of configuration plus two caches (spec §5):
// a capability cache keyed by profile, and a trust-verdict cache keyed by
// certificate fingerprint. Safe for concurrent use; both caches are
// protected by their own mutex, and capability fetch is additionally
// deduplicated with singleflight so N concurrent callers for the same
// profile issue exactly one transport request.
type Client struct {
	endpoint *url.URL
	identity Identity
	trust    TrustFunc

	profile         string
	preferredCipher scep.Capability
	preferredDigest scep.Capability
	httpClient      *http.Client

	capsMu    sync.Mutex
	capsCache map[string]scep.Capabilities
	capsGroup singleflight.Group

	trustMu    sync.Mutex
	trustCache map[[sha256.Size]byte]bool

	chainMu    sync.Mutex
	chainCache map[string]*resolvedChain
}

// New validates its arguments (spec §7's configuration-error cases) and
// returns a ready Client. A non-RSA identity key fails here, before any
// request is ever issued (spec §8).
func New(endpoint *url.URL, identity Identity, trust TrustFunc, opts ...Option) (*Client, error) {
	if endpoint == nil {
		return nil, errs.Config("endpoint is required")
	}
	if endpoint.RawQuery != "" {
		return nil, errs.Config("endpoint %q must not carry a query string", endpoint)
	}
	if endpoint.Fragment != "" {
		return nil, errs.Config("endpoint %q must not carry a fragment", endpoint)
	}
	if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
		return nil, errs.Config("endpoint %q must use http or https", endpoint)
	}
	if identity.Certificate == nil {
		return nil, errs.Config("identity certificate is required")
	}
	if identity.PrivateKey == nil {
		return nil, errs.Config("identity private key is required")
	}
	if _, ok := identity.Certificate.PublicKey.(*rsa.PublicKey); !ok {
		return nil, errs.Config("identity certificate key must be RSA")
	}
	if trust == nil {
		return nil, errs.Config("trust callback is required")
	}

	c := &Client{
		endpoint:   endpoint,
		identity:   identity,
		trust:      trust,
		capsCache:  make(map[string]scep.Capabilities),
		trustCache: make(map[[sha256.Size]byte]bool),
		chainCache: make(map[string]*resolvedChain),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) transport() *transport.Transport {
	return transport.New(c.endpoint, c.httpClient)
}

// GetCapabilities returns the CA's advertised capability set, cached per
// profile for the lifetime of the client (spec §4.6, §8: "getCapabilities()
// called N times issues one transport request"). A failed probe is never
// cached, so the next call retries.
func (c *Client) GetCapabilities(ctx context.Context) (scep.Capabilities, error) {
	logging.Entry("GetCapabilities").Debug("entering")

	c.capsMu.Lock()
	if caps, ok := c.capsCache[c.profile]; ok {
		c.capsMu.Unlock()
		return caps, nil
	}
	c.capsMu.Unlock()

	v, err, _ := c.capsGroup.Do(c.profile, func() (interface{}, error) {
		return request.GetCACaps(ctx, c.transport(), c.profile)
	})
	if err != nil {
		return nil, err
	}
	caps := v.(scep.Capabilities)

	c.capsMu.Lock()
	c.capsCache[c.profile] = caps
	c.capsMu.Unlock()

	return caps, nil
}

// GetCACertificate returns the full CA chain as returned by GetCACert,
// after invoking the trust callback on the resolved CA certificate (spec
// §4.6, §4.7). The resolved chain (CA, recipient, signer) is cached per
// profile so downstream operations reuse it without re-resolving.
func (c *Client) GetCACertificate(ctx context.Context) (scep.CertificateChain, error) {
	logging.Entry("GetCACertificate").Debug("entering")

	chain, err := request.GetCACert(ctx, c.transport(), c.profile)
	if err != nil {
		return nil, err
	}

	resolved, err := resolveChain(chain)
	if err != nil {
		return nil, err
	}

	if err := c.verifyTrust(resolved.ca); err != nil {
		return nil, err
	}

	c.chainMu.Lock()
	c.chainCache[c.profile] = resolved
	c.chainMu.Unlock()

	return chain, nil
}

// verifyTrust checks the trust cache for ca's fingerprint, falling back
// to the callback and memoizing a positive verdict (spec §4.7: negative
// verdicts are never cached, so the user may be asked again).
func (c *Client) verifyTrust(ca *x509.Certificate) error {
	fingerprint := sha256.Sum256(ca.Raw)

	c.trustMu.Lock()
	verdict, known := c.trustCache[fingerprint]
	c.trustMu.Unlock()
	if known && verdict {
		return nil
	}

	if !c.trust(ca) {
		return errs.Trust("CA certificate %s was not approved by the trust callback", ca.Subject)
	}

	c.trustMu.Lock()
	c.trustCache[fingerprint] = true
	c.trustMu.Unlock()
	return nil
}

// GetRolloverCertificate returns the CA's rollover chain (spec §4.6).
// Requires the GetNextCACert capability; otherwise fails as unsupported.
func (c *Client) GetRolloverCertificate(ctx context.Context) (scep.CertificateChain, error) {
	logging.Entry("GetRolloverCertificate").Debug("entering")

	caps, err := c.GetCapabilities(ctx)
	if err != nil {
		return nil, err
	}
	if !caps.RolloverSupported() {
		return nil, errs.Unsupported("CA does not advertise GetNextCACert")
	}

	resolved, err := c.resolvedChain(ctx)
	if err != nil {
		return nil, err
	}

	return request.GetNextCACert(ctx, c.transport(), c.profile, resolved.ca)
}

// resolvedChain returns the cached chain resolution, resolving it (and
// running the trust callback) if this is the first call for the current
// profile — mirroring the original's retrieveCA() helper threading
// selectCA(getCaCertificate()) through every transactional call.
func (c *Client) resolvedChain(ctx context.Context) (*resolvedChain, error) {
	c.chainMu.Lock()
	resolved, ok := c.chainCache[c.profile]
	c.chainMu.Unlock()
	if ok {
		return resolved, nil
	}

	if _, err := c.GetCACertificate(ctx); err != nil {
		return nil, err
	}

	c.chainMu.Lock()
	resolved = c.chainCache[c.profile]
	c.chainMu.Unlock()
	return resolved, nil
}

func (c *Client) negotiateCipher(caps scep.Capabilities) scep.Capability {
	if c.preferredCipher != "" && caps.Has(c.preferredCipher) {
		return c.preferredCipher
	}
	return caps.StrongestCipher()
}

func (c *Client) negotiateDigest(caps scep.Capabilities) scep.Capability {
	if c.preferredDigest != "" && caps.Has(c.preferredDigest) {
		return c.preferredDigest
	}
	return caps.StrongestDigest()
}

func (c *Client) method(caps scep.Capabilities) transport.Method {
	if caps.PostSupported() {
		return transport.POST
	}
	return transport.GET
}

// Enroll returns an EnrollmentTransaction for csr, bound to a transport,
// encoder and decoder chosen per the negotiated capabilities and resolved
// chain (spec §4.6). It does not send; the caller drives Send and Poll.
// renew selects RenewalReq over PKCSReq; callers are responsible for only
// setting it true when the CA advertises Renewal and identity is the
// certificate being renewed (spec §4.5).
func (c *Client) Enroll(ctx context.Context, csr *x509.CertificateRequest, renew bool) (*transaction.EnrollmentTransaction, error) {
	logging.Entry("Enroll").Debug("entering")

	caps, err := c.GetCapabilities(ctx)
	if err != nil {
		return nil, err
	}
	resolved, err := c.resolvedChain(ctx)
	if err != nil {
		return nil, err
	}

	msgEncoder := message.NewEncoder(c.identity.Certificate, c.identity.PrivateKey, c.negotiateDigest(caps))
	msgDecoder := message.NewDecoder(resolved.signer)
	envEncoder := envelope.NewEncoder(resolved.recipient, c.negotiateCipher(caps))
	envDecoder := envelope.NewDecoder(c.identity.Certificate, c.identity.PrivateKey)

	return transaction.NewEnrollment(c.transport(), c.method(caps), msgEncoder, msgDecoder, envEncoder, envDecoder, resolved.ca, csr, c.profile, renew), nil
}

// GetCertificate runs a GetCert non-enrollment transaction for the
// caller-supplied serial against the resolved CA's issuer name (spec §9:
// the caller-supplied serial is used, not the CA's own — fixing the bug
// named there), and returns the certificates out of the decoded store.
func (c *Client) GetCertificate(ctx context.Context, serial *big.Int) (scep.CertificateChain, error) {
	logging.Entry("GetCertificate").Debug("entering")

	q, err := c.newQuery(ctx, scep.GetCert, serial)
	if err != nil {
		return nil, err
	}
	return c.runQuery(ctx, q)
}

// GetCRL runs a GetCRL non-enrollment transaction and returns the first
// CRL in the decoded store, or nil if none (spec §4.6). Mirrors the
// original's distribution-point short-circuit (SPEC_FULL §C.1): GetCRL is
// only meaningful when the CA certificate carries no CRL Distribution
// Points extension, since a CA that publishes one expects CRLs to be
// fetched from there instead.
func (c *Client) GetCRL(ctx context.Context, serial *big.Int) ([]byte, error) {
	logging.Entry("GetCRL").Debug("entering")

	resolved, err := c.resolvedChain(ctx)
	if err != nil {
		return nil, err
	}
	if hasCRLDistributionPoints(resolved.ca) {
		return nil, errs.Unsupported("CA certificate carries a CRL Distribution Points extension; fetch the CRL from there instead of GetCRL")
	}

	q, err := c.newQuery(ctx, scep.GetCRL, serial)
	if err != nil {
		return nil, err
	}
	if _, err := c.runQuery(ctx, q); err != nil {
		return nil, err
	}
	crls := q.CRLs()
	if len(crls) == 0 {
		return nil, nil
	}
	return marshalCertificateList(crls[0])
}

// marshalCertificateList re-encodes a parsed CRL back into a complete,
// verifiable DER blob: SEQUENCE { tbsCertList, signatureAlgorithm,
// signatureValue }. list.TBSCertList.Raw alone is only the inner
// to-be-signed SEQUENCE, missing the outer wrapper and the CA's
// signature, so it must never be returned on its own.
func marshalCertificateList(list *pkix.CertificateList) ([]byte, error) {
	der, err := asn1.Marshal(*list)
	if err != nil {
		return nil, errs.ProtocolErr(err, "error re-marshaling CRL")
	}
	return der, nil
}

func (c *Client) newQuery(ctx context.Context, messageType scep.MessageType, serial *big.Int) (*transaction.QueryTransaction, error) {
	caps, err := c.GetCapabilities(ctx)
	if err != nil {
		return nil, err
	}
	resolved, err := c.resolvedChain(ctx)
	if err != nil {
		return nil, err
	}

	msgEncoder := message.NewEncoder(c.identity.Certificate, c.identity.PrivateKey, c.negotiateDigest(caps))
	msgDecoder := message.NewDecoder(resolved.signer)
	envEncoder := envelope.NewEncoder(resolved.recipient, c.negotiateCipher(caps))
	envDecoder := envelope.NewDecoder(c.identity.Certificate, c.identity.PrivateKey)

	return transaction.NewQuery(c.transport(), c.method(caps), msgEncoder, msgDecoder, envEncoder, envDecoder, messageType, resolved.ca, serial, c.profile), nil
}

func (c *Client) runQuery(ctx context.Context, q *transaction.QueryTransaction) (scep.CertificateChain, error) {
	state, err := q.Send(ctx)
	if err != nil {
		return nil, err
	}
	if state == transaction.StateCertNonExistant {
		return nil, errs.OperationFailure(q.FailInfo())
	}
	return q.Certificates(), nil
}

func hasCRLDistributionPoints(cert *x509.Certificate) bool {
	for _, ext := range cert.Extensions {
		if ext.Id.Equal(oidCRLDistributionPoints) {
			return true
		}
	}
	return false
}
