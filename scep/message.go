package scep

import "crypto/x509"

// PkiMessage is the logical record carried by a signed-and-optionally-
// enveloped PKI operation, independent of its CMS encoding (spec §3).
type PkiMessage struct {
	MessageType     MessageType
	TransactionID   TransactionID
	SenderNonce     Nonce
	RecipientNonce  Nonce
	PKIStatus       PKIStatus
	FailInfo        FailInfo
	Profile         string
	hasStatus       bool
	hasFailInfo     bool
	hasRecipient    bool
	// Payload is the decrypted or about-to-be-encrypted content: a
	// PKCS#10 CSR (PKCSReq/RenewalReq), an IssuerAndSubject (CertPoll),
	// an IssuerAndSerialNumber (GetCert/GetCRL), or a degenerate CMS certificate bag
	// (CertRep), depending on MessageType.
	Payload []byte
}

// WithStatus returns a copy of m carrying the given pkiStatus.
func (m PkiMessage) WithStatus(s PKIStatus) PkiMessage {
	m.PKIStatus = s
	m.hasStatus = true
	return m
}

// HasStatus reports whether a pkiStatus attribute was set (received or
// explicitly assigned).
func (m PkiMessage) HasStatus() bool { return m.hasStatus }

// WithFailInfo returns a copy of m carrying the given failInfo.
func (m PkiMessage) WithFailInfo(f FailInfo) PkiMessage {
	m.FailInfo = f
	m.hasFailInfo = true
	return m
}

// HasFailInfo reports whether a failInfo attribute was set.
func (m PkiMessage) HasFailInfo() bool { return m.hasFailInfo }

// WithRecipientNonce returns a copy of m carrying the given recipientNonce.
func (m PkiMessage) WithRecipientNonce(n Nonce) PkiMessage {
	m.RecipientNonce = n
	m.hasRecipient = true
	return m
}

// HasRecipientNonce reports whether a recipientNonce attribute was set.
func (m PkiMessage) HasRecipientNonce() bool { return m.hasRecipient }

// CertificateChain is the unordered 1-3 certificate set GetCACert and
// GetNextCACert return.
type CertificateChain []*x509.Certificate
