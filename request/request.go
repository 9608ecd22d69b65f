// Package request implements the three non-transactional SCEP message
// shapes (spec §4.2): GetCACaps, GetCACert and GetNextCACert. Each is a
// plain GET with no request body; what varies is how the response is
// interpreted.
package request

import (
	"context"
	"crypto/x509"

	"github.com/smallstep/pkcs7"

	"github.com/asyd/jscep-client-bc-jdk6/errs"
	"github.com/asyd/jscep-client-bc-jdk6/message"
	"github.com/asyd/jscep-client-bc-jdk6/scep"
	"github.com/asyd/jscep-client-bc-jdk6/transport"
)

// GetCACaps requests the CA's capability list. Unknown tokens in the
// response are ignored (spec §4.2).
func GetCACaps(ctx context.Context, tr *transport.Transport, profile string) (scep.Capabilities, error) {
	resp, err := tr.GetOperation(ctx, "GetCACaps", profile)
	if err != nil {
		return nil, errs.IO(err, "error requesting GetCACaps")
	}
	if !matchesContentType(resp.ContentType, contentTypeTextPlain, "") {
		return nil, errs.Protocol("GetCACaps returned unexpected content type %q", resp.ContentType)
	}
	return scep.ParseCapabilities(string(resp.Body)), nil
}

// GetCACert requests the CA certificate chain: either a lone DER CA
// certificate, or a degenerate CMS bag containing the CA and its RA(s)
// (spec §4.2).
func GetCACert(ctx context.Context, tr *transport.Transport, profile string) (scep.CertificateChain, error) {
	resp, err := tr.GetOperation(ctx, "GetCACert", profile)
	if err != nil {
		return nil, errs.IO(err, "error requesting GetCACert")
	}

	switch {
	case matchesContentType(resp.ContentType, contentTypeCACert):
		cert, err := x509.ParseCertificate(resp.Body)
		if err != nil {
			return nil, errs.ProtocolErr(err, "error parsing GetCACert response")
		}
		return scep.CertificateChain{cert}, nil
	case matchesContentType(resp.ContentType, contentTypeCARACert):
		return parseDegenerateBag(resp.Body)
	default:
		return nil, errs.Protocol("GetCACert returned unexpected content type %q", resp.ContentType)
	}
}

// GetNextCACert requests the CA's rollover chain, verifying that the
// enclosing signed-data is signed by the current CA certificate (spec
// §4.2): a CA rotating its key signs the announcement with the key being
// rotated away from.
func GetNextCACert(ctx context.Context, tr *transport.Transport, profile string, currentCA *x509.Certificate) (scep.CertificateChain, error) {
	resp, err := tr.GetOperation(ctx, "GetNextCACert", profile)
	if err != nil {
		return nil, errs.IO(err, "error requesting GetNextCACert")
	}
	if !matchesContentType(resp.ContentType, contentTypeNextCACert) {
		return nil, errs.Protocol("GetNextCACert returned unexpected content type %q", resp.ContentType)
	}

	dec := message.NewDecoder(currentCA)
	// GetNextCACert's signed-data carries no SCEP attributes, only the
	// degenerate bag as content; decode its envelope directly rather than
	// through message.Decoder's attribute-required path.
	p7, err := pkcs7.Parse(resp.Body)
	if err != nil {
		return nil, errs.ProtocolErr(err, "error parsing GetNextCACert response")
	}
	if err := p7.Verify(); err != nil {
		return nil, errs.ProtocolErr(err, "GetNextCACert signature verification failed")
	}
	signer := p7.GetOnlySigner()
	if signer == nil || !signer.Equal(dec.ExpectedSigner) {
		return nil, errs.Protocol("GetNextCACert was not signed by the current CA")
	}

	return parseDegenerateBag(p7.Content)
}

// parseDegenerateBag extracts the certificates from a degenerate (no
// signer) CMS signed-data used purely as a certificate container.
func parseDegenerateBag(der []byte) (scep.CertificateChain, error) {
	p7, err := pkcs7.Parse(der)
	if err != nil {
		return nil, errs.ProtocolErr(err, "error parsing certificate bag")
	}
	if len(p7.Certificates) == 0 {
		return nil, errs.Protocol("certificate bag carried no certificates")
	}
	return scep.CertificateChain(p7.Certificates), nil
}
