// Package transaction implements the transaction engine (spec §4.5): the
// outer send/poll loop shared by enrollment and non-enrollment (GetCert,
// GetCRL) exchanges, correlation validation, and terminal-state
// classification. It does not decide transport method, recipient
// certificate or digest/cipher choice; those are the client façade's job
// (spec §4.6) and arrive already bound into the encoder/decoder pair
// passed to New*.
package transaction

import (
	"context"
	"crypto/x509/pkix"

	"github.com/smallstep/pkcs7"

	"github.com/asyd/jscep-client-bc-jdk6/envelope"
	"github.com/asyd/jscep-client-bc-jdk6/errs"
	"github.com/asyd/jscep-client-bc-jdk6/logging"
	"github.com/asyd/jscep-client-bc-jdk6/message"
	"github.com/asyd/jscep-client-bc-jdk6/scep"
	"github.com/asyd/jscep-client-bc-jdk6/transport"
)

// State is the transaction's finite state (spec §3).
type State int

const (
	StateInitial State = iota
	StateCertIssued
	StateCertReqPending
	StateCertNonExistant
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "INITIAL"
	case StateCertIssued:
		return "CERT_ISSUED"
	case StateCertReqPending:
		return "CERT_REQ_PENDING"
	case StateCertNonExistant:
		return "CERT_NON_EXISTANT"
	default:
		return "UNKNOWN"
	}
}

// codec bundles the cryptographic pipeline a transaction drives: message
// signing/verification and envelope encryption/decryption.
type codec struct {
	transport  *transport.Transport
	method     transport.Method
	msgEncoder *message.Encoder
	msgDecoder *message.Decoder
	envEncoder *envelope.Encoder
	envDecoder *envelope.Decoder
}

// exchange sends one signed-and-enveloped PkiMessage and returns the
// decoded response, after validating correlation (spec §4.5): the
// response's transactionID must match the outgoing one and its
// recipientNonce must match the outgoing senderNonce. A mismatch on
// either is rejected as tampered or misrouted, never silently ignored.
func (c *codec) exchange(ctx context.Context, messageType scep.MessageType, transactionID scep.TransactionID, profile string, payload []byte) (scep.PkiMessage, error) {
	var empty scep.PkiMessage
	log := logging.Transaction("transaction.exchange", string(transactionID), string(messageType))
	log.Debug("sending pkiOperation")

	senderNonce, err := scep.NewNonce()
	if err != nil {
		return empty, errs.IO(err, "error generating senderNonce")
	}

	var enveloped []byte
	if len(payload) > 0 {
		enveloped, err = c.envEncoder.Encode(payload)
		if err != nil {
			return empty, err
		}
	}

	signed, err := c.msgEncoder.Encode(message.EncodeInput{
		MessageType:   messageType,
		TransactionID: transactionID,
		SenderNonce:   senderNonce,
		Profile:       profile,
		Payload:       enveloped,
	})
	if err != nil {
		return empty, err
	}

	resp, err := c.transport.SendPKIOperation(ctx, c.method, signed)
	if err != nil {
		return empty, errs.IO(err, "error sending pkiOperation")
	}
	if !matchesContentType(resp.ContentType, contentTypePKIMessage) {
		return empty, errs.Protocol("pkiOperation response returned unexpected content type %q", resp.ContentType)
	}

	pkiMsg, err := c.msgDecoder.Decode(resp.Body)
	if err != nil {
		return empty, err
	}

	if pkiMsg.TransactionID != transactionID {
		return empty, errs.Protocol("response transactionID %q does not match request %q", pkiMsg.TransactionID, transactionID)
	}
	if !pkiMsg.HasRecipientNonce() || !pkiMsg.RecipientNonce.Equal(senderNonce) {
		return empty, errs.Protocol("response recipientNonce does not match request senderNonce")
	}
	if !pkiMsg.HasStatus() || !pkiMsg.PKIStatus.Valid() {
		return empty, errs.Protocol("response carries no valid pkiStatus")
	}

	log.WithField("pki-status", pkiMsg.PKIStatus.String()).Debug("received pkiOperation response")
	return pkiMsg, nil
}

// decodeCertStore unwraps the enveloped degenerate certificate bag
// carried by a SUCCESS CertRep, along with any CRLs the same bag
// carries (used by GetCRL; empty for every other operation).
func (c *codec) decodeCertStore(enveloped []byte) (scep.CertificateChain, []*pkix.CertificateList, error) {
	bag, err := c.envDecoder.Decode(enveloped)
	if err != nil {
		return nil, nil, err
	}
	p7, err := pkcs7.Parse(bag)
	if err != nil {
		return nil, nil, errs.ProtocolErr(err, "error parsing certificate store")
	}
	crls := make([]*pkix.CertificateList, len(p7.CRLs))
	for i := range p7.CRLs {
		crls[i] = &p7.CRLs[i]
	}
	return scep.CertificateChain(p7.Certificates), crls, nil
}
