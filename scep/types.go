// Package scep defines the wire vocabulary and logical data model of the
// Simple Certificate Enrollment Protocol, independent of how any given
// message is transported or encoded as CMS. See draft-gutmann-scep and
// RFC 8894 §3 for the values below.
package scep

// MessageType identifies the operation carried by a PKI message. The
// values are fixed decimal strings, not enumerable integers, because they
// travel as PrintableString CMS attribute values.
type MessageType string

// The SCEP message types this client speaks. CertRep is never sent by a
// client, only received.
const (
	CertRep    MessageType = "3"
	RenewalReq MessageType = "17"
	PKCSReq    MessageType = "19"
	CertPoll   MessageType = "20"
	GetCert    MessageType = "21"
	GetCRL     MessageType = "22"
)

func (m MessageType) String() string { return string(m) }

// PKIStatus is the outcome of a PKI transaction as reported by the CA.
type PKIStatus string

// The three statuses a CertRep may carry.
const (
	Success PKIStatus = "0"
	Failure PKIStatus = "2"
	Pending PKIStatus = "3"
)

func (s PKIStatus) String() string { return string(s) }

// Valid reports whether s is one of the three statuses the protocol
// defines; anything else is a protocol violation.
func (s PKIStatus) Valid() bool {
	switch s {
	case Success, Failure, Pending:
		return true
	default:
		return false
	}
}

// FailInfo explains a Failure PKIStatus.
type FailInfo string

// The reasons a CA may give for rejecting a request.
const (
	BadAlg          FailInfo = "0"
	BadMessageCheck FailInfo = "1"
	BadRequest      FailInfo = "2"
	BadTime         FailInfo = "3"
	BadCertID       FailInfo = "4"
)

func (f FailInfo) String() string { return string(f) }

// TransactionID correlates every PKI message exchanged for one operation.
// For enrollment it is derived from the CSR's public key (see
// transaction.DeriveTransactionID); for a query it is chosen fresh.
type TransactionID string
