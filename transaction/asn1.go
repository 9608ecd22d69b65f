package transaction

import (
	"crypto/sha1"
	"crypto/x509"
	"encoding/asn1"
	"encoding/hex"
	"math/big"

	"github.com/pkg/errors"

	"github.com/asyd/jscep-client-bc-jdk6/scep"
)

// issuerAndSerialNumber is the CMS structure (RFC 5652 §10.2.4) used as the
// payload of GetCert and GetCRL requests.
type issuerAndSerialNumber struct {
	Issuer       asn1.RawValue
	SerialNumber *big.Int
}

// issuerAndSubject is the structure used as the payload of a CertPoll
// request: the certificate being polled for has no serial number yet, so
// the CA is asked to find it by the issuer it would carry plus the
// subject of the original request.
type issuerAndSubject struct {
	Issuer  asn1.RawValue
	Subject asn1.RawValue
}

// marshalIssuerAndSerialNumber builds the payload for GetCert/GetCRL.
func marshalIssuerAndSerialNumber(issuer *x509.Certificate, serial *big.Int) ([]byte, error) {
	der, err := asn1.Marshal(issuerAndSerialNumber{
		Issuer:       asn1.RawValue{FullBytes: issuer.RawSubject},
		SerialNumber: serial,
	})
	if err != nil {
		return nil, errors.Wrap(err, "error marshaling issuerAndSerialNumber")
	}
	return der, nil
}

// marshalIssuerAndSubject builds the payload for CertPoll.
func marshalIssuerAndSubject(issuer *x509.Certificate, csr *x509.CertificateRequest) ([]byte, error) {
	der, err := asn1.Marshal(issuerAndSubject{
		Issuer:  asn1.RawValue{FullBytes: issuer.RawSubject},
		Subject: asn1.RawValue{FullBytes: csr.RawSubject},
	})
	if err != nil {
		return nil, errors.Wrap(err, "error marshaling issuerAndSubject")
	}
	return der, nil
}

// DeriveTransactionID computes the stable transaction identifier for an
// enrollment of csr (spec §3, §4.5): a SHA-1 hash of the CSR's DER-encoded
// SubjectPublicKeyInfo, hex-encoded so it travels as a PrintableString.
// Two enrollments of the same CSR MUST derive the same transactionID, so
// the CA can recognize a resend (spec §8).
func DeriveTransactionID(csr *x509.CertificateRequest) scep.TransactionID {
	sum := sha1.Sum(csr.RawSubjectPublicKeyInfo)
	return scep.TransactionID(hex.EncodeToString(sum[:]))
}
