package client

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/asyd/jscep-client-bc-jdk6/scep"
)

func generateCert(t *testing.T, cn string, parent *x509.Certificate, parentKey *rsa.PrivateKey, keyUsage x509.KeyUsage) (*x509.Certificate, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	template := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              keyUsage,
		BasicConstraintsValid: true,
		IsCA:                  keyUsage&x509.KeyUsageCertSign != 0,
	}
	signer, signerKey := template, key
	if parent != nil {
		signer, signerKey = parent, parentKey
	}
	der, err := x509.CreateCertificate(rand.Reader, template, signer, &key.PublicKey, signerKey)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert, key
}

func TestResolveChain_SingleCert(t *testing.T) {
	ca, _ := generateCert(t, "ca", nil, nil, x509.KeyUsageCertSign|x509.KeyUsageDigitalSignature)

	resolved, err := resolveChain(scep.CertificateChain{ca})
	require.NoError(t, err)
	require.True(t, resolved.ca.Equal(ca))
	require.True(t, resolved.recipient.Equal(ca))
	require.True(t, resolved.signer.Equal(ca))
}

func TestResolveChain_CARAPair(t *testing.T) {
	ca, caKey := generateCert(t, "ca", nil, nil, x509.KeyUsageCertSign|x509.KeyUsageDigitalSignature)
	ra, _ := generateCert(t, "ra", ca, caKey, x509.KeyUsageDigitalSignature|x509.KeyUsageKeyEncipherment)

	resolved, err := resolveChain(scep.CertificateChain{ra, ca})
	require.NoError(t, err)
	require.True(t, resolved.ca.Equal(ca))
	require.True(t, resolved.recipient.Equal(ra))
	require.True(t, resolved.signer.Equal(ra))
}

func TestResolveChain_EntrustTriple(t *testing.T) {
	ca, caKey := generateCert(t, "ca", nil, nil, x509.KeyUsageCertSign|x509.KeyUsageDigitalSignature)
	raSig, _ := generateCert(t, "ra-sig", ca, caKey, x509.KeyUsageDigitalSignature)
	raEnc, _ := generateCert(t, "ra-enc", ca, caKey, x509.KeyUsageKeyEncipherment|x509.KeyUsageDataEncipherment)

	resolved, err := resolveChain(scep.CertificateChain{ca, raSig, raEnc})
	require.NoError(t, err)
	require.True(t, resolved.ca.Equal(ca))
	require.True(t, resolved.recipient.Equal(raEnc))
	require.True(t, resolved.signer.Equal(raSig))
}

func TestResolveChain_UnsupportedSize(t *testing.T) {
	ca, caKey := generateCert(t, "ca", nil, nil, x509.KeyUsageCertSign)
	other, _ := generateCert(t, "other", ca, caKey, x509.KeyUsageDigitalSignature)
	extra, _ := generateCert(t, "extra", ca, caKey, x509.KeyUsageKeyEncipherment)
	more, _ := generateCert(t, "more", ca, caKey, x509.KeyUsageKeyEncipherment)

	_, err := resolveChain(scep.CertificateChain{ca, other, extra, more})
	require.Error(t, err)
}

func TestResolveChain_NoVerifiableCAFails(t *testing.T) {
	a, _ := generateCert(t, "a", nil, nil, x509.KeyUsageDigitalSignature)
	b, _ := generateCert(t, "b", nil, nil, x509.KeyUsageDigitalSignature)

	_, err := resolveChain(scep.CertificateChain{a, b})
	require.Error(t, err)
}
