package tolls

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// MaxErrorBodyBytes bounds the response body excerpt kept on a ProviderError
const MaxErrorBodyBytes = 512

// ProviderError is returned for every non-success outcome of an outbound provider call
type ProviderError struct {
	Provider   string // Provider identifier
	StatusCode int    // HTTP status, 0 when no response was received
	Body       string // Excerpt of the response body
	Err        error  // Underlying transport or decode error, if any
}

func (e *ProviderError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("%s request failed (status %d): %v", e.Provider, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
	case e.Body != "":
		return fmt.Sprintf("%s request failed with status %d: %s", e.Provider, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("%s request failed with status %d", e.Provider, e.StatusCode)
	}
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Unauthorized reports whether the provider rejected the credentials
func (e *ProviderError) Unauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// UnsupportedProviderError is returned when no adapter exists for an identifier
type UnsupportedProviderError struct {
	ID string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported toll provider '%s'", e.ID)
}

// IsUnauthorized reports whether err is a ProviderError for rejected credentials
func IsUnauthorized(err error) bool {
	var perr *ProviderError
	return errors.As(err, &perr) && perr.Unauthorized()
}

// excerpt trims a body to at most MaxErrorBodyBytes without splitting a UTF-8 sequence
func excerpt(body []byte) string {
	if len(body) <= MaxErrorBodyBytes {
		return string(body)
	}

	cut := MaxErrorBodyBytes
	for cut > 0 && MaxErrorBodyBytes-cut < utf8.UTFMax && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut]) + "..."
}
