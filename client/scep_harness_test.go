package client

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smallstep/pkcs7"
	"github.com/stretchr/testify/require"

	"github.com/asyd/jscep-client-bc-jdk6/envelope"
	"github.com/asyd/jscep-client-bc-jdk6/message"
	"github.com/asyd/jscep-client-bc-jdk6/scep"
)

// The fixed SCEP attribute OIDs message.Decoder expects, duplicated here
// (as in transaction/transaction_test.go) so this harness can sign a
// CertRep directly, something the client-only message.Encoder has no
// pkiStatus input for.
var (
	harnessOIDMessageType = asn1.ObjectIdentifier{2, 16, 840, 1, 113733, 1, 9, 2}
	harnessOIDPKIStatus   = asn1.ObjectIdentifier{2, 16, 840, 1, 113733, 1, 9, 3}
	harnessOIDSenderNonce = asn1.ObjectIdentifier{2, 16, 840, 1, 113733, 1, 9, 5}
	harnessOIDRecipNonce  = asn1.ObjectIdentifier{2, 16, 840, 1, 113733, 1, 9, 6}
	harnessOIDTransID     = asn1.ObjectIdentifier{2, 16, 840, 1, 113733, 1, 9, 7}
)

// issuerAndSerialNumber mirrors transaction's unexported ASN.1 shape for
// the GetCert/GetCRL payload, so this harness can decode what the client
// actually sent on the wire.
type issuerAndSerialNumber struct {
	Issuer       asn1.RawValue
	SerialNumber *big.Int
}

// scepHarness simulates the CA side of a PKIOperation exchange using the
// module's own message/envelope codecs, so a test exercises a genuine
// encode/decode round trip instead of asserting against mocked internals.
type scepHarness struct {
	caCert     *x509.Certificate
	caKey      *rsa.PrivateKey
	clientCert *x509.Certificate
	issuedCert *x509.Certificate

	decodeFromClient  *message.Decoder
	decryptFromClient *envelope.Decoder
	encryptToClient   *envelope.Encoder

	// lastSerial captures the SerialNumber the client sent in its most
	// recent GetCert/GetCRL payload.
	lastSerial *big.Int
}

func newSCEPHarness(t *testing.T, clientCert *x509.Certificate, clientKey *rsa.PrivateKey) *scepHarness {
	t.Helper()
	caCert, caKey := generateCert(t, "test-ca", nil, nil, x509.KeyUsageCertSign|x509.KeyUsageDigitalSignature)
	issuedCert, _ := generateCert(t, "issued", nil, nil, x509.KeyUsageDigitalSignature)

	return &scepHarness{
		caCert:            caCert,
		caKey:             caKey,
		clientCert:        clientCert,
		issuedCert:        issuedCert,
		decodeFromClient:  message.NewDecoder(clientCert),
		decryptFromClient: envelope.NewDecoder(caCert, caKey),
		encryptToClient:   envelope.NewEncoder(clientCert, scep.CapDES3),
	}
}

// buildCertRep signs a SUCCESS CertRep carrying the harness's issued
// certificate, enveloped to the client.
func (h *scepHarness) buildCertRep(t *testing.T, transactionID scep.TransactionID, recipientNonce scep.Nonce) []byte {
	t.Helper()

	bag, err := pkcs7.DegenerateCertificate(h.issuedCert.Raw)
	require.NoError(t, err)
	enveloped, err := h.encryptToClient.Encode(bag)
	require.NoError(t, err)

	senderNonce, err := scep.NewNonce()
	require.NoError(t, err)

	sd, err := pkcs7.NewSignedData(enveloped)
	require.NoError(t, err)
	attrs := []pkcs7.Attribute{
		{Type: harnessOIDMessageType, Value: string(scep.CertRep)},
		{Type: harnessOIDTransID, Value: string(transactionID)},
		{Type: harnessOIDSenderNonce, Value: []byte(senderNonce)},
		{Type: harnessOIDRecipNonce, Value: []byte(recipientNonce)},
		{Type: harnessOIDPKIStatus, Value: string(scep.Success)},
	}
	require.NoError(t, sd.AddSigner(h.caCert, h.caKey, pkcs7.SignerInfoConfig{ExtraSignedAttributes: attrs}))
	out, err := sd.Finish()
	require.NoError(t, err)
	return out
}

// handler decodes an incoming PKIOperation, records the serial number
// carried by a GetCert/GetCRL payload, and always answers SUCCESS.
func (h *scepHarness) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("operation") {
		case "GetCACaps":
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte("POSTPKIOperation\n"))
			return
		case "GetCACert":
			w.Header().Set("Content-Type", "application/x-x509-ca-cert")
			w.Write(h.caCert.Raw)
			return
		}

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		reqMsg, err := h.decodeFromClient.Decode(body)
		require.NoError(t, err)

		cleartext, err := h.decryptFromClient.Decode(reqMsg.Payload)
		require.NoError(t, err)

		var payload issuerAndSerialNumber
		_, err = asn1.Unmarshal(cleartext, &payload)
		require.NoError(t, err)
		h.lastSerial = payload.SerialNumber

		resp := h.buildCertRep(t, reqMsg.TransactionID, reqMsg.SenderNonce)
		w.Header().Set("Content-Type", "application/x-pki-message")
		w.Write(resp)
	}
}

func newSCEPServer(t *testing.T, h *scepHarness) *httptest.Server {
	t.Helper()
	return httptest.NewServer(h.handler(t))
}
