package crypto

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"time"

	"github.com/youmark/pkcs8"

	"github.com/afip-tools/go-afip-client/afip"
)

// ParsePrivateKey loads an RSA key from a PEM block. Plain PKCS#1 and
// PKCS#8 blocks are accepted; ENCRYPTED PRIVATE KEY blocks are decrypted
// with password. Anything unparseable maps to afip.ErrCorruptCertificate.
func ParsePrivateKey(pemBytes, password []byte) (*rsa.PrivateKey, error) {
	rest := pemBytes
	for len(rest) > 0 {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}

		switch block.Type {
		case "RSA PRIVATE KEY":
			key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", afip.ErrCorruptCertificate, err)
			}
			return key, nil

		case "PRIVATE KEY":
			keyAny, err := x509.ParsePKCS8PrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", afip.ErrCorruptCertificate, err)
			}
			key, ok := keyAny.(*rsa.PrivateKey)
			if !ok {
				return nil, fmt.Errorf("%w: unsupported key type %T (expected RSA)", afip.ErrCorruptCertificate, keyAny)
			}
			return key, nil

		case "ENCRYPTED PRIVATE KEY":
			if len(password) == 0 {
				return nil, fmt.Errorf("%w: password required for encrypted key", afip.ErrCorruptCertificate)
			}
			keyAny, err := pkcs8.ParsePKCS8PrivateKey(block.Bytes, password)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", afip.ErrCorruptCertificate, err)
			}
			key, ok := keyAny.(*rsa.PrivateKey)
			if !ok {
				return nil, fmt.Errorf("%w: unsupported key type %T (expected RSA)", afip.ErrCorruptCertificate, keyAny)
			}
			return key, nil
		}
	}

	return nil, fmt.Errorf("%w: no private key block found in PEM", afip.ErrCorruptCertificate)
}

// ParseCertificate loads an X.509 certificate from PEM or raw DER bytes.
func ParseCertificate(certBytes []byte) (*x509.Certificate, error) {
	if block, _ := pem.Decode(certBytes); block != nil {
		if block.Type != "CERTIFICATE" {
			return nil, fmt.Errorf("%w: unexpected PEM block %q", afip.ErrCorruptCertificate, block.Type)
		}
		certBytes = block.Bytes
	}

	cert, err := x509.ParseCertificate(certBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", afip.ErrCorruptCertificate, err)
	}
	return cert, nil
}

// CertificateExpiration returns the NotAfter date of a PEM or DER
// certificate. The store derives TaxPayer.CertificateExpires from this
// every time the certificate blob changes.
func CertificateExpiration(certBytes []byte) (time.Time, error) {
	cert, err := ParseCertificate(certBytes)
	if err != nil {
		return time.Time{}, err
	}
	return cert.NotAfter, nil
}
