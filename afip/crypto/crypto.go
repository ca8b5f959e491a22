// Package crypto wraps the key material handling the AFIP services need:
// RSA key generation, PKCS#10 signing requests for obtaining a certificate,
// and the embedded PKCS7/CMS signature WSAA expects over ticket requests.
package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.mozilla.org/pkcs7"

	"github.com/afip-tools/go-afip-client/afip"
)

var logger = logrus.WithField("component", "afip.crypto")

const keyBits = 2048

// CreateKey generates a fresh 2048-bit RSA key and returns it as a PKCS#8
// PEM block. Failures here are unexpected library errors, not operational
// conditions.
func CreateKey() ([]byte, error) {
	key, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return nil, fmt.Errorf("generate RSA key: %w", err)
	}

	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// CreateCSR builds a PKCS#10 certificate signing request binding the
// taxpayer's identity, signed with its own key. serialNumber carries the
// "CUIT nnnnnnnnnnn" form AFIP requires in the subject.
func CreateCSR(keyPEM []byte, organization, commonName, serialNumber string) ([]byte, error) {
	key, err := ParsePrivateKey(keyPEM, nil)
	if err != nil {
		return nil, err
	}

	tmpl := &x509.CertificateRequest{
		Subject: pkix.Name{
			Organization: []string{organization},
			CommonName:   commonName,
			SerialNumber: serialNumber,
		},
		SignatureAlgorithm: x509.SHA256WithRSA,
	}

	der, err := x509.CreateCertificateRequest(rand.Reader, tmpl, key)
	if err != nil {
		return nil, fmt.Errorf("create CSR: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: der}), nil
}

// Sign produces the embedded (non-detached) PKCS7/CMS signature over
// payload using the taxpayer's certificate and key, SHA-256 digests,
// DER-encoded. Unparseable certificate or key material maps to
// afip.ErrCorruptCertificate: an expired or mangled certificate is a
// routine operational event for callers.
func Sign(payload, certPEM, keyPEM []byte) ([]byte, error) {
	cert, err := ParseCertificate(certPEM)
	if err != nil {
		return nil, err
	}
	key, err := ParsePrivateKey(keyPEM, nil)
	if err != nil {
		return nil, err
	}

	signed, err := pkcs7.NewSignedData(payload)
	if err != nil {
		return nil, fmt.Errorf("prepare signed data: %w", err)
	}
	signed.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)

	if err := signed.AddSigner(cert, key, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, fmt.Errorf("%w: %v", afip.ErrCorruptCertificate, err)
	}

	der, err := signed.Finish()
	if err != nil {
		return nil, fmt.Errorf("finish PKCS7 signature: %w", err)
	}

	logger.WithField("payload_size", len(payload)).Debug("Signed ticket request")
	return der, nil
}
