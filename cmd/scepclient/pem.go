package main

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"

	"github.com/pkg/errors"
)

func loadCertificate(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading %s", path)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.Errorf("%s does not contain PEM data", path)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, errors.Wrapf(err, "error parsing certificate in %s", path)
	}
	return cert, nil
}

func loadCSR(path string) (*x509.CertificateRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading %s", path)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.Errorf("%s does not contain PEM data", path)
	}
	csr, err := x509.ParseCertificateRequest(block.Bytes)
	if err != nil {
		return nil, errors.Wrapf(err, "error parsing certificate request in %s", path)
	}
	return csr, nil
}

func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading %s", path)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.Errorf("%s does not contain PEM data", path)
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	generic, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrapf(err, "error parsing private key in %s", path)
	}
	key, ok := generic.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.Errorf("private key in %s is not RSA", path)
	}
	return key, nil
}

func writeCertificatePEM(path string, cert *x509.Certificate) error {
	return os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}), 0o644)
}
