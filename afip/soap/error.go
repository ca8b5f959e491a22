package soap

import "fmt"

// Fault is a SOAP fault returned by the remote service.
type Fault struct {
	Code    string
	Message string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("soap fault %s: %s", f.Code, f.Message)
}

// RequestError covers transport failures and non-fault HTTP errors.
type RequestError struct {
	StatusCode int
	Body       string
	Err        error
}

func (r *RequestError) Error() string {
	return fmt.Sprintf("status: %d err: %v body: %s", r.StatusCode, r.Err, r.Body)
}

func (r *RequestError) Unwrap() error {
	return r.Err
}
