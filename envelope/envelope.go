// Package envelope implements the PKI envelope codec (spec §4.3):
// encrypting a cleartext payload for a recipient certificate as
// CMS enveloped-data, and decrypting enveloped-data addressed to the
// client's own identity. The actual ASN.1/CMS structure is produced by
// github.com/smallstep/pkcs7 (spec §1 treats the low-level CMS codec as
// an external collaborator); this package supplies only the SCEP-specific
// algorithm-selection semantics on top of it.
package envelope

import (
	"crypto"
	"crypto/x509"
	"sync"

	"github.com/pkg/errors"
	"github.com/smallstep/pkcs7"

	"github.com/asyd/jscep-client-bc-jdk6/scep"
)

// contentEncryptionMu guards pkcs7.ContentEncryptionAlgorithm, which the
// library exposes as process-wide mutable state rather than a per-call
// argument.
var contentEncryptionMu sync.Mutex

// algorithmFor maps a negotiated cipher capability to the pkcs7 content
// encryption algorithm identifier.
func algorithmFor(cap scep.Capability) int {
	if cap == scep.CapAES {
		return pkcs7.EncryptionAlgorithmAES128CBC
	}
	return pkcs7.EncryptionAlgorithmDESCBC
}

// Encoder builds enveloped-data addressed to a single recipient
// certificate.
type Encoder struct {
	Recipient *x509.Certificate
	Cipher    scep.Capability // CapAES or CapDES3; selected per spec §4.3
}

// NewEncoder returns an Encoder targeting recipient, using cipher as the
// content-encryption algorithm. Callers select cipher per §4.3: AES if the
// CA advertises it (and no narrower preference overrides it to DES3),
// otherwise DES3.
func NewEncoder(recipient *x509.Certificate, cipher scep.Capability) *Encoder {
	return &Encoder{Recipient: recipient, Cipher: cipher}
}

// Encode encrypts payload for e.Recipient, returning DER-encoded CMS
// enveloped-data with a single key-transport recipient info.
func (e *Encoder) Encode(payload []byte) ([]byte, error) {
	contentEncryptionMu.Lock()
	defer contentEncryptionMu.Unlock()

	prev := pkcs7.ContentEncryptionAlgorithm
	pkcs7.ContentEncryptionAlgorithm = algorithmFor(e.Cipher)
	defer func() { pkcs7.ContentEncryptionAlgorithm = prev }()

	out, err := pkcs7.Encrypt(payload, []*x509.Certificate{e.Recipient})
	if err != nil {
		return nil, errors.Wrap(err, "error encrypting pkiEnvelope")
	}
	return out, nil
}

// Decoder unwraps enveloped-data addressed to the client's own identity.
type Decoder struct {
	Identity   *x509.Certificate
	PrivateKey crypto.PrivateKey
}

// NewDecoder returns a Decoder using identity/key to unwrap the recipient
// info matching identity's IssuerAndSerialNumber.
func NewDecoder(identity *x509.Certificate, key crypto.PrivateKey) *Decoder {
	return &Decoder{Identity: identity, PrivateKey: key}
}

// Decode parses DER-encoded CMS enveloped-data and returns the cleartext
// payload, or a decryption failure if no recipient info matches d.Identity.
func (d *Decoder) Decode(envelopeDER []byte) ([]byte, error) {
	p7, err := pkcs7.Parse(envelopeDER)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing pkiEnvelope")
	}
	payload, err := p7.Decrypt(d.Identity, d.PrivateKey)
	if err != nil {
		return nil, errors.Wrap(err, "error decrypting pkiEnvelope")
	}
	return payload, nil
}
