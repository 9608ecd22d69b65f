package client

import (
	"crypto/x509"

	"github.com/asyd/jscep-client-bc-jdk6/errs"
	"github.com/asyd/jscep-client-bc-jdk6/scep"
)

// resolvedChain is the outcome of chain resolution (spec §4.6): the CA
// itself, the certificate that should receive the encrypted payload, and
// the certificate the PKI message response must be signed by.
type resolvedChain struct {
	ca        *x509.Certificate
	recipient *x509.Certificate
	signer    *x509.Certificate
}

// resolveChain implements spec §4.6's chain-resolution rule for the 1–3
// certificates GetCACert returns.
//
//   - size 1: that certificate is the CA, the recipient, and the signer.
//   - size 2: the CA is the one whose public key verifies the signature
//     on the other; the other is the RA and is both the recipient and the
//     signer.
//   - size 3 (the "Entrust case"): the CA is identified the same way
//     against either RA. Of the two RAs, the encryption RA — the one
//     whose KeyUsage asserts neither digitalSignature nor cRLSign — is
//     the recipient; the other RA is the signer.
func resolveChain(chain scep.CertificateChain) (*resolvedChain, error) {
	ca, err := selectCA(chain)
	if err != nil {
		return nil, err
	}

	switch len(chain) {
	case 1:
		return &resolvedChain{ca: ca, recipient: ca, signer: ca}, nil
	case 2:
		ra := otherThan(chain, ca)
		return &resolvedChain{ca: ca, recipient: ra, signer: ra}, nil
	case 3:
		var ras []*x509.Certificate
		for _, c := range chain {
			if c != ca {
				ras = append(ras, c)
			}
		}
		if len(ras) != 2 {
			return nil, errs.Protocol("certificate chain of size 3 must contain exactly two non-CA certificates")
		}
		for i, ra := range ras {
			if isEncryptionOnly(ra) {
				return &resolvedChain{ca: ca, recipient: ra, signer: ras[1-i]}, nil
			}
		}
		return nil, errs.Protocol("certificate chain of size 3 has no RA lacking the digitalSignature and cRLSign key usages")
	default:
		return nil, errs.Protocol("certificate chain of size %d is not supported (must be 1, 2, or 3)", len(chain))
	}
}

// selectCA returns the certificate in chain whose public key verifies
// the signature of every other certificate in chain (spec §8's testable
// property). For a chain of size 1 this holds vacuously.
func selectCA(chain scep.CertificateChain) (*x509.Certificate, error) {
	for _, candidate := range chain {
		verifiesAll := true
		for _, other := range chain {
			if other == candidate {
				continue
			}
			if err := other.CheckSignatureFrom(candidate); err != nil {
				verifiesAll = false
				break
			}
		}
		if verifiesAll {
			return candidate, nil
		}
	}
	return nil, errs.Protocol("no certificate in the chain verifies the signatures of the others; cannot identify the CA")
}

func otherThan(chain scep.CertificateChain, ca *x509.Certificate) *x509.Certificate {
	for _, c := range chain {
		if c != ca {
			return c
		}
	}
	return nil
}

// isEncryptionOnly reports whether cert's KeyUsage asserts neither
// digitalSignature (bit 0) nor cRLSign (bit 6) — the signal spec §4.6
// uses to pick the encryption RA out of an Entrust-style triple.
func isEncryptionOnly(cert *x509.Certificate) bool {
	return cert.KeyUsage&x509.KeyUsageDigitalSignature == 0 &&
		cert.KeyUsage&x509.KeyUsageCRLSign == 0
}
