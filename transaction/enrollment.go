package transaction

import (
	"context"
	"crypto/x509"

	"github.com/asyd/jscep-client-bc-jdk6/envelope"
	"github.com/asyd/jscep-client-bc-jdk6/errs"
	"github.com/asyd/jscep-client-bc-jdk6/logging"
	"github.com/asyd/jscep-client-bc-jdk6/message"
	"github.com/asyd/jscep-client-bc-jdk6/scep"
	"github.com/asyd/jscep-client-bc-jdk6/transport"
)

// EnrollmentTransaction drives a PKCSReq/RenewalReq exchange plus any
// subsequent CertPoll calls to completion (spec §4.5). The zero value is
// not usable; construct with NewEnrollment.
type EnrollmentTransaction struct {
	codec

	csr           *x509.CertificateRequest
	issuer        *x509.Certificate
	profile       string
	messageType   scep.MessageType
	transactionID scep.TransactionID

	state    State
	failInfo scep.FailInfo
	certs    scep.CertificateChain
}

// NewEnrollment returns an EnrollmentTransaction for csr against issuer
// (the CA, used for correlation and for building poll requests; not
// necessarily the recipient of the encrypted payload). renew selects
// RenewalReq over PKCSReq as the initial message type (spec §4.5: legal
// only when the CA advertises Renewal and identity is being renewed).
// NewEnrollment does not check either condition; client.Enroll passes its
// own caller's renew choice through unchanged.
func NewEnrollment(
	tr *transport.Transport,
	method transport.Method,
	msgEncoder *message.Encoder,
	msgDecoder *message.Decoder,
	envEncoder *envelope.Encoder,
	envDecoder *envelope.Decoder,
	issuer *x509.Certificate,
	csr *x509.CertificateRequest,
	profile string,
	renew bool,
) *EnrollmentTransaction {
	messageType := scep.PKCSReq
	if renew {
		messageType = scep.RenewalReq
	}
	return &EnrollmentTransaction{
		codec: codec{
			transport:  tr,
			method:     method,
			msgEncoder: msgEncoder,
			msgDecoder: msgDecoder,
			envEncoder: envEncoder,
			envDecoder: envDecoder,
		},
		csr:           csr,
		issuer:        issuer,
		profile:       profile,
		messageType:   messageType,
		transactionID: DeriveTransactionID(csr),
		state:         StateInitial,
	}
}

// TransactionID returns the stable identifier derived from the CSR.
func (e *EnrollmentTransaction) TransactionID() scep.TransactionID { return e.transactionID }

// State returns the transaction's current state.
func (e *EnrollmentTransaction) State() State { return e.state }

// FailInfo returns the CA's reason for a CERT_NON_EXISTANT outcome. Only
// meaningful after State() == StateCertNonExistant.
func (e *EnrollmentTransaction) FailInfo() scep.FailInfo { return e.failInfo }

// Certificates returns the issued certificate store. Only meaningful
// after State() == StateCertIssued.
func (e *EnrollmentTransaction) Certificates() scep.CertificateChain { return e.certs }

// Send submits the initial PKCSReq/RenewalReq and classifies the
// response (spec §4.5). Calling Send more than once resends with a fresh
// senderNonce but the same stable transactionID; the CA is required to
// deduplicate on transactionID (spec §5).
func (e *EnrollmentTransaction) Send(ctx context.Context) (State, error) {
	pkiMsg, err := e.exchange(ctx, e.messageType, e.transactionID, e.profile, e.csr.Raw)
	if err != nil {
		return e.state, err
	}
	return e.classify(pkiMsg)
}

// Poll emits a CertPoll for a transaction left CERT_REQ_PENDING by Send
// (spec §4.5). Calling Poll outside that state is a caller error; the
// protocol offers no such request for any other state.
func (e *EnrollmentTransaction) Poll(ctx context.Context) (State, error) {
	if e.state != StateCertReqPending {
		return e.state, errs.Protocol("poll called outside CERT_REQ_PENDING (state is %s)", e.state)
	}
	payload, err := marshalIssuerAndSubject(e.issuer, e.csr)
	if err != nil {
		return e.state, err
	}
	pkiMsg, err := e.exchange(ctx, scep.CertPoll, e.transactionID, e.profile, payload)
	if err != nil {
		return e.state, err
	}
	return e.classify(pkiMsg)
}

func (e *EnrollmentTransaction) classify(pkiMsg scep.PkiMessage) (State, error) {
	switch pkiMsg.PKIStatus {
	case scep.Success:
		certs, _, err := e.decodeCertStore(pkiMsg.Payload)
		if err != nil {
			return e.state, err
		}
		e.certs = certs
		e.state = StateCertIssued
	case scep.Failure:
		e.failInfo = pkiMsg.FailInfo
		e.state = StateCertNonExistant
		logging.Transaction("transaction.enrollment", string(e.transactionID), string(e.messageType)).
			WithField("fail-info", e.failInfo.String()).Warn("enrollment refused")
	case scep.Pending:
		e.state = StateCertReqPending
	}
	return e.state, nil
}
