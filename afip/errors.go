package afip

import (
	"errors"
	"fmt"
)

// Error taxonomy. The certificate errors wrap ErrAuthentication, so
// errors.Is(err, ErrAuthentication) matches any failure to obtain a
// usable ticket.
var (
	// ErrAuthentication marks any failure to obtain a usable ticket.
	ErrAuthentication = errors.New("afip: authentication failed")

	// ErrCertificateExpired means the taxpayer's certificate date has passed.
	ErrCertificateExpired = fmt.Errorf("%w: certificate expired", ErrAuthentication)

	// ErrUntrustedCertificate means the certificate was not issued by a
	// certificate authority AFIP recognizes.
	ErrUntrustedCertificate = fmt.Errorf("%w: certificate not issued by a trusted CA", ErrAuthentication)

	// ErrCorruptCertificate means the certificate or key bytes could not be
	// parsed. A routine operational condition, not a programming error.
	ErrCorruptCertificate = fmt.Errorf("%w: corrupt certificate or private key", ErrAuthentication)

	// ErrNoTaxPayers is returned when a ticket is requested for "any"
	// taxpayer but none exist in the store.
	ErrNoTaxPayers = fmt.Errorf("%w: no taxpayers available", ErrAuthentication)

	// ErrCannotValidateTogether rejects batches mixing receipts with
	// different point of sales or receipt type.
	ErrCannotValidateTogether = errors.New("afip: receipts with different point of sales or receipt type cannot be validated together")

	// ErrInsideTransaction is fatal: the authorization call performs a
	// non-idempotent remote side effect and must never run inside an open
	// local transaction that could later roll back.
	ErrInsideTransaction = errors.New("afip: receipt validation must not run inside an open transaction")
)

// ValidationError is raised only in opt-in fail-fast mode; it carries the
// first rejection message from the batch.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("afip: receipt validation failed: %s", e.Message)
}

// ProtocolError wraps a remote error code and message that does not match
// any known pattern: SOAP faults, malformed responses, WSFE Errors blocks.
type ProtocolError struct {
	Code    int
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("afip: remote error %d: %s", e.Code, e.Message)
}
