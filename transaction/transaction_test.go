package transaction

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/base64"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/smallstep/pkcs7"
	"github.com/stretchr/testify/require"

	"github.com/asyd/jscep-client-bc-jdk6/envelope"
	"github.com/asyd/jscep-client-bc-jdk6/message"
	"github.com/asyd/jscep-client-bc-jdk6/scep"
	"github.com/asyd/jscep-client-bc-jdk6/transport"
)

// The fixed SCEP attribute OIDs (same values message.Decoder expects),
// duplicated here so the test harness can sign a CertRep directly rather
// than through the client-only message.Encoder, which has no pkiStatus
// input because a client never sends one.
var (
	oidMessageType = asn1.ObjectIdentifier{2, 16, 840, 1, 113733, 1, 9, 2}
	oidPKIStatus   = asn1.ObjectIdentifier{2, 16, 840, 1, 113733, 1, 9, 3}
	oidFailInfo    = asn1.ObjectIdentifier{2, 16, 840, 1, 113733, 1, 9, 4}
	oidSenderNonce = asn1.ObjectIdentifier{2, 16, 840, 1, 113733, 1, 9, 5}
	oidRecipNonce  = asn1.ObjectIdentifier{2, 16, 840, 1, 113733, 1, 9, 6}
	oidTransID     = asn1.ObjectIdentifier{2, 16, 840, 1, 113733, 1, 9, 7}
)

func generateCert(t *testing.T, cn string) (*x509.Certificate, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	template := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment | x509.KeyUsageDataEncipherment,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert, key
}

func generateCSR(t *testing.T, cn string, key *rsa.PrivateKey) *x509.CertificateRequest {
	t.Helper()
	template := &x509.CertificateRequest{Subject: pkix.Name{CommonName: cn}}
	der, err := x509.CreateCertificateRequest(rand.Reader, template, key)
	require.NoError(t, err)
	csr, err := x509.ParseCertificateRequest(der)
	require.NoError(t, err)
	return csr
}

func mustNonce(t *testing.T) scep.Nonce {
	t.Helper()
	n, err := scep.NewNonce()
	require.NoError(t, err)
	return n
}

// caHarness simulates the CA side of an exchange using this module's own
// codecs, so the test exercises a genuine encode/decode round trip rather
// than asserting against mocked internals.
type caHarness struct {
	caCert     *x509.Certificate
	caKey      *rsa.PrivateKey
	clientCert *x509.Certificate
	issuedCert *x509.Certificate

	decodeFromClient  *message.Decoder
	encryptToClient   *envelope.Encoder

	// pending, when true, makes the first non-poll response PENDING; the
	// subsequent CertPoll responds SUCCESS.
	pending      bool
	polled       bool
	senderNonces [][]byte
}

func newCAHarness(t *testing.T, clientCert *x509.Certificate, pending bool) *caHarness {
	t.Helper()
	caCert, caKey := generateCert(t, "test-ca")
	issuedCert, _ := generateCert(t, "issued")

	return &caHarness{
		caCert:           caCert,
		caKey:            caKey,
		clientCert:       clientCert,
		issuedCert:       issuedCert,
		decodeFromClient: message.NewDecoder(clientCert),
		encryptToClient:  envelope.NewEncoder(clientCert, scep.CapDES3),
		pending:          pending,
	}
}

// buildCertRep signs a CertRep carrying status (and, for SUCCESS, the
// issued certificate enveloped to the client).
func (h *caHarness) buildCertRep(t *testing.T, transactionID scep.TransactionID, recipientNonce scep.Nonce, status scep.PKIStatus) []byte {
	t.Helper()

	var payload []byte
	if status == scep.Success {
		bag, err := pkcs7.DegenerateCertificate(h.issuedCert.Raw)
		require.NoError(t, err)
		enveloped, err := h.encryptToClient.Encode(bag)
		require.NoError(t, err)
		payload = enveloped
	}

	sd, err := pkcs7.NewSignedData(payload)
	require.NoError(t, err)
	attrs := []pkcs7.Attribute{
		{Type: oidMessageType, Value: string(scep.CertRep)},
		{Type: oidTransID, Value: string(transactionID)},
		{Type: oidSenderNonce, Value: []byte(mustNonce(t))},
		{Type: oidRecipNonce, Value: []byte(recipientNonce)},
		{Type: oidPKIStatus, Value: string(status)},
	}
	if status == scep.Failure {
		attrs = append(attrs, pkcs7.Attribute{Type: oidFailInfo, Value: string(scep.BadRequest)})
	}
	require.NoError(t, sd.AddSigner(h.caCert, h.caKey, pkcs7.SignerInfoConfig{ExtraSignedAttributes: attrs}))
	out, err := sd.Finish()
	require.NoError(t, err)
	return out
}

func (h *caHarness) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "PKIOperation", r.URL.Query().Get("operation"))

		var body []byte
		var err error
		if r.Method == http.MethodPost {
			body, err = io.ReadAll(r.Body)
			require.NoError(t, err)
		} else {
			msg := r.URL.Query().Get("message")
			body, err = base64.URLEncoding.DecodeString(msg)
			require.NoError(t, err)
		}

		reqMsg, err := h.decodeFromClient.Decode(body)
		require.NoError(t, err)
		h.senderNonces = append(h.senderNonces, []byte(reqMsg.SenderNonce))

		status := scep.Success
		if reqMsg.MessageType != scep.CertPoll && h.pending && !h.polled {
			status = scep.Pending
		}
		if reqMsg.MessageType == scep.CertPoll {
			h.polled = true
		}

		resp := h.buildCertRep(t, reqMsg.TransactionID, reqMsg.SenderNonce, status)
		w.Header().Set("Content-Type", "application/x-pki-message")
		w.Write(resp)
	}
}

func newCAServer(t *testing.T, ca *caHarness) *httptest.Server {
	t.Helper()
	return httptest.NewServer(ca.handler(t))
}

func newTransaction(t *testing.T, srv *httptest.Server, ca *caHarness, clientCert *x509.Certificate, clientKey *rsa.PrivateKey, csr *x509.CertificateRequest) *EnrollmentTransaction {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	tr := transport.New(u, srv.Client())

	msgEncoder := message.NewEncoder(clientCert, clientKey, scep.CapSHA256)
	msgDecoder := message.NewDecoder(ca.caCert)
	envEncoder := envelope.NewEncoder(ca.caCert, scep.CapDES3)
	envDecoder := envelope.NewDecoder(clientCert, clientKey)

	return NewEnrollment(tr, transport.POST, msgEncoder, msgDecoder, envEncoder, envDecoder, ca.caCert, csr, "", false)
}

func TestEnrollment_SuccessfulIssuance(t *testing.T) {
	clientCert, clientKey := generateCert(t, "client")
	csr := generateCSR(t, "client", clientKey)

	ca := newCAHarness(t, clientCert, false)
	srv := newCAServer(t, ca)
	defer srv.Close()

	tr := newTransaction(t, srv, ca, clientCert, clientKey, csr)

	state, err := tr.Send(t.Context())
	require.NoError(t, err)
	require.Equal(t, StateCertIssued, state)
	require.NotEmpty(t, tr.Certificates())
}

func TestEnrollment_PendingThenIssued(t *testing.T) {
	clientCert, clientKey := generateCert(t, "client")
	csr := generateCSR(t, "client", clientKey)

	ca := newCAHarness(t, clientCert, true)
	srv := newCAServer(t, ca)
	defer srv.Close()

	tr := newTransaction(t, srv, ca, clientCert, clientKey, csr)

	state, err := tr.Send(t.Context())
	require.NoError(t, err)
	require.Equal(t, StateCertReqPending, state)

	state, err = tr.Poll(t.Context())
	require.NoError(t, err)
	require.Equal(t, StateCertIssued, state)

	require.Len(t, ca.senderNonces, 2)
	require.NotEqual(t, ca.senderNonces[0], ca.senderNonces[1])
}

func TestEnrollment_TransactionIDStableAcrossResend(t *testing.T) {
	clientKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	csr := generateCSR(t, "client", clientKey)

	id1 := DeriveTransactionID(csr)
	id2 := DeriveTransactionID(csr)
	require.Equal(t, id1, id2)
}

func TestEnrollment_RejectsMismatchedTransactionID(t *testing.T) {
	clientCert, clientKey := generateCert(t, "client")
	csr := generateCSR(t, "client", clientKey)
	ca := newCAHarness(t, clientCert, false)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := ca.buildCertRep(t, "not-the-right-id", mustNonce(t), scep.Success)
		w.Header().Set("Content-Type", "application/x-pki-message")
		w.Write(resp)
	}))
	defer srv.Close()

	tr := newTransaction(t, srv, ca, clientCert, clientKey, csr)
	_, err := tr.Send(t.Context())
	require.Error(t, err)
}

func TestEnrollment_FailureSurfacesFailInfo(t *testing.T) {
	clientCert, clientKey := generateCert(t, "client")
	csr := generateCSR(t, "client", clientKey)
	ca := newCAHarness(t, clientCert, false)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		reqMsg, err := ca.decodeFromClient.Decode(body)
		require.NoError(t, err)
		resp := ca.buildCertRep(t, reqMsg.TransactionID, reqMsg.SenderNonce, scep.Failure)
		w.Header().Set("Content-Type", "application/x-pki-message")
		w.Write(resp)
	}))
	defer srv.Close()

	tr := newTransaction(t, srv, ca, clientCert, clientKey, csr)
	state, err := tr.Send(t.Context())
	require.NoError(t, err)
	require.Equal(t, StateCertNonExistant, state)
	require.Equal(t, scep.BadRequest, tr.FailInfo())
}

func TestEnrollment_RejectsUnexpectedContentType(t *testing.T) {
	clientCert, clientKey := generateCert(t, "client")
	csr := generateCSR(t, "client", clientKey)
	ca := newCAHarness(t, clientCert, false)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		reqMsg, err := ca.decodeFromClient.Decode(body)
		require.NoError(t, err)
		resp := ca.buildCertRep(t, reqMsg.TransactionID, reqMsg.SenderNonce, scep.Success)
		w.Header().Set("Content-Type", "text/html")
		w.Write(resp)
	}))
	defer srv.Close()

	tr := newTransaction(t, srv, ca, clientCert, clientKey, csr)
	_, err := tr.Send(t.Context())
	require.Error(t, err)
}
