// Package message implements the PKI message codec (spec §4.4): wrapping
// an (optionally enveloped) payload in CMS signed-data carrying the SCEP
// authenticated attributes, and verifying + unwrapping an incoming
// signed-data response. The ASN.1/CMS structure itself is produced by
// github.com/smallstep/pkcs7; this package owns the SCEP-specific
// attribute semantics spec §1 calls "the core".
package message

import (
	"crypto"
	"crypto/x509"
	"encoding/asn1"

	"github.com/pkg/errors"
	"github.com/smallstep/pkcs7"

	"github.com/asyd/jscep-client-bc-jdk6/errs"
	"github.com/asyd/jscep-client-bc-jdk6/scep"
)

func digestOID(d scep.Capability) asn1.ObjectIdentifier {
	switch d {
	case scep.CapSHA512:
		return oidDigestSHA512
	case scep.CapSHA256:
		return oidDigestSHA256
	default:
		return oidDigestSHA1
	}
}

// EncodeInput is everything the encoder needs to build one outgoing PKI
// message (spec §4.4).
type EncodeInput struct {
	MessageType    scep.MessageType
	TransactionID  scep.TransactionID
	SenderNonce    scep.Nonce
	RecipientNonce scep.Nonce // only set when replying in-kind; unused by this client
	Profile        string
	// Payload is the enveloped-data bytes to sign (the encapsulated
	// content), or nil for a message type that carries no payload.
	Payload []byte
}

// Encoder signs an EncodeInput as CMS signed-data with one signer.
type Encoder struct {
	SignerCert *x509.Certificate
	SignerKey  crypto.Signer
	Digest     scep.Capability // CapSHA1, CapSHA256 or CapSHA512
}

// NewEncoder returns an Encoder that signs with identity/key using the
// given digest algorithm.
func NewEncoder(identity *x509.Certificate, key crypto.Signer, digest scep.Capability) *Encoder {
	return &Encoder{SignerCert: identity, SignerKey: key, Digest: digest}
}

// Encode produces DER-encoded CMS signed-data carrying in.Payload as its
// encapsulated content and the SCEP attributes as authenticated
// attributes.
func (e *Encoder) Encode(in EncodeInput) ([]byte, error) {
	sd, err := pkcs7.NewSignedData(in.Payload)
	if err != nil {
		return nil, errors.Wrap(err, "error initializing signed-data")
	}
	sd.SetDigestAlgorithm(digestOID(e.Digest))

	attrs := []pkcs7.Attribute{
		{Type: oidSCEPmessageType, Value: string(in.MessageType)},
		{Type: oidSCEPtransactionID, Value: string(in.TransactionID)},
		{Type: oidSCEPsenderNonce, Value: []byte(in.SenderNonce)},
	}
	if len(in.RecipientNonce) > 0 {
		attrs = append(attrs, pkcs7.Attribute{Type: oidSCEPrecipientNonce, Value: []byte(in.RecipientNonce)})
	}
	if in.Profile != "" {
		attrs = append(attrs, pkcs7.Attribute{Type: oidSCEPprofile, Value: in.Profile})
	}

	config := pkcs7.SignerInfoConfig{ExtraSignedAttributes: attrs}
	if err := sd.AddSigner(e.SignerCert, e.SignerKey, config); err != nil {
		return nil, errors.Wrap(err, "error signing pkiMessage")
	}
	out, err := sd.Finish()
	if err != nil {
		return nil, errors.Wrap(err, "error finishing signed-data")
	}
	return out, nil
}

// Decoder verifies an incoming CMS signed-data PKI message and extracts
// its logical content.
type Decoder struct {
	// ExpectedSigner is the certificate the signed-data's signer MUST
	// match: the CA itself, or the signing RA (spec §4.4: "MUST be the
	// CA or the RA").
	ExpectedSigner *x509.Certificate
}

// NewDecoder returns a Decoder that only accepts signed-data signed by
// expectedSigner.
func NewDecoder(expectedSigner *x509.Certificate) *Decoder {
	return &Decoder{ExpectedSigner: expectedSigner}
}

// Decode verifies der's signature and extracts the SCEP attributes,
// returning the logical PkiMessage. Verification failure and missing
// required attributes are both protocol errors (spec §4.4): the decoder
// must run, and run fully, before any branching on message content, so
// that an unsigned or mis-signed response can never be mistaken for
// success (spec §4.5).
func (d *Decoder) Decode(der []byte) (scep.PkiMessage, error) {
	var msg scep.PkiMessage

	p7, err := pkcs7.Parse(der)
	if err != nil {
		return msg, errs.ProtocolErr(err, "error parsing pkiMessage")
	}
	if err := p7.Verify(); err != nil {
		return msg, errs.ProtocolErr(err, "signature verification failed")
	}

	signer := p7.GetOnlySigner()
	if signer == nil {
		return msg, errs.Protocol("pkiMessage carries no signer certificate")
	}
	if d.ExpectedSigner != nil && !signer.Equal(d.ExpectedSigner) {
		return msg, errs.Protocol("pkiMessage was signed by an unexpected certificate")
	}

	var msgType string
	if err := p7.UnmarshalSignedAttribute(oidSCEPmessageType, &msgType); err != nil {
		return msg, errs.ProtocolErr(err, "missing messageType attribute")
	}
	msg.MessageType = scep.MessageType(msgType)

	var txID string
	if err := p7.UnmarshalSignedAttribute(oidSCEPtransactionID, &txID); err != nil {
		return msg, errs.ProtocolErr(err, "missing transactionID attribute")
	}
	msg.TransactionID = scep.TransactionID(txID)

	var senderNonce []byte
	if err := p7.UnmarshalSignedAttribute(oidSCEPsenderNonce, &senderNonce); err != nil {
		return msg, errs.ProtocolErr(err, "missing senderNonce attribute")
	}
	msg.SenderNonce = scep.Nonce(senderNonce)

	var recipientNonce []byte
	if err := p7.UnmarshalSignedAttribute(oidSCEPrecipientNonce, &recipientNonce); err == nil && len(recipientNonce) > 0 {
		msg = msg.WithRecipientNonce(scep.Nonce(recipientNonce))
	}

	var status string
	if err := p7.UnmarshalSignedAttribute(oidSCEPpkiStatus, &status); err == nil && status != "" {
		st := scep.PKIStatus(status)
		if !st.Valid() {
			return msg, errs.Protocol("pkiMessage carries unrecognized pkiStatus %q", status)
		}
		msg = msg.WithStatus(st)
	}

	var failInfo string
	if err := p7.UnmarshalSignedAttribute(oidSCEPfailInfo, &failInfo); err == nil && failInfo != "" {
		msg = msg.WithFailInfo(scep.FailInfo(failInfo))
	}

	var profile string
	if err := p7.UnmarshalSignedAttribute(oidSCEPprofile, &profile); err == nil {
		msg.Profile = profile
	}

	msg.Payload = p7.Content
	return msg, nil
}
