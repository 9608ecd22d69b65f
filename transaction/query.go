package transaction

import (
	"context"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"

	"github.com/google/uuid"

	"github.com/asyd/jscep-client-bc-jdk6/envelope"
	"github.com/asyd/jscep-client-bc-jdk6/errs"
	"github.com/asyd/jscep-client-bc-jdk6/message"
	"github.com/asyd/jscep-client-bc-jdk6/scep"
	"github.com/asyd/jscep-client-bc-jdk6/transport"
)

// QueryTransaction drives a GetCert or GetCRL exchange (spec §4.5): same
// outer shape as EnrollmentTransaction, but the payload is an
// IssuerAndSerialNumber and a PENDING response is a protocol violation
// rather than a legal intermediate state, since there is nothing for the
// caller to poll for.
type QueryTransaction struct {
	codec

	messageType   scep.MessageType
	issuer        *x509.Certificate
	serial        *big.Int
	profile       string
	transactionID scep.TransactionID

	state    State
	failInfo scep.FailInfo
	certs    scep.CertificateChain
	crls     []*pkix.CertificateList
}

// NewQuery returns a QueryTransaction for messageType (scep.GetCert or
// scep.GetCRL) against issuer/serial. The transactionID is chosen fresh
// (spec §3: queries have no stable CSR to derive one from).
func NewQuery(
	tr *transport.Transport,
	method transport.Method,
	msgEncoder *message.Encoder,
	msgDecoder *message.Decoder,
	envEncoder *envelope.Encoder,
	envDecoder *envelope.Decoder,
	messageType scep.MessageType,
	issuer *x509.Certificate,
	serial *big.Int,
	profile string,
) *QueryTransaction {
	return &QueryTransaction{
		codec: codec{
			transport:  tr,
			method:     method,
			msgEncoder: msgEncoder,
			msgDecoder: msgDecoder,
			envEncoder: envEncoder,
			envDecoder: envDecoder,
		},
		messageType:   messageType,
		issuer:        issuer,
		serial:        serial,
		profile:       profile,
		transactionID: scep.TransactionID(uuid.NewString()),
		state:         StateInitial,
	}
}

// TransactionID returns the freshly chosen identifier for this query.
func (q *QueryTransaction) TransactionID() scep.TransactionID { return q.transactionID }

// State returns the transaction's current state.
func (q *QueryTransaction) State() State { return q.state }

// FailInfo returns the CA's reason for a CERT_NON_EXISTANT outcome.
func (q *QueryTransaction) FailInfo() scep.FailInfo { return q.failInfo }

// Certificates returns the decoded certificate store (GetCert). Only
// meaningful after State() == StateCertIssued.
func (q *QueryTransaction) Certificates() scep.CertificateChain { return q.certs }

// CRLs returns the decoded CRL store (GetCRL). Only meaningful after
// State() == StateCertIssued.
func (q *QueryTransaction) CRLs() []*pkix.CertificateList { return q.crls }

// Send submits the GetCert/GetCRL request and classifies the response. A
// PENDING pkiStatus here is fatal: the CA has no business deferring a
// lookup (spec §4.5).
func (q *QueryTransaction) Send(ctx context.Context) (State, error) {
	payload, err := marshalIssuerAndSerialNumber(q.issuer, q.serial)
	if err != nil {
		return q.state, err
	}
	pkiMsg, err := q.exchange(ctx, q.messageType, q.transactionID, q.profile, payload)
	if err != nil {
		return q.state, err
	}

	switch pkiMsg.PKIStatus {
	case scep.Success:
		certs, crls, err := q.decodeCertStore(pkiMsg.Payload)
		if err != nil {
			return q.state, err
		}
		q.certs = certs
		q.crls = crls
		q.state = StateCertIssued
	case scep.Failure:
		q.failInfo = pkiMsg.FailInfo
		q.state = StateCertNonExistant
	case scep.Pending:
		return q.state, errs.Protocol("CA returned PENDING for a %s request, which has no poll semantics", q.messageType)
	}
	return q.state, nil
}
