package tollsync

import "fmt"

// InvalidCredentialsMessage is the user facing message for rejected credentials
const InvalidCredentialsMessage = "Invalid credentials for toll provider"

// NoCredentialsMessage is returned when a sync is requested for an account without credentials
const NoCredentialsMessage = "No credentials configured for this account"

// ValidationError reports bad input, an unknown or inactive provider, or a duplicate account
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// CredentialError is returned when a provider rejects credentials at account creation
type CredentialError struct {
	ProviderID string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("invalid credentials for toll provider '%s'", e.ProviderID)
}

// NotFoundError reports a missing account or provider inside the caller's company scope
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.Resource, e.ID)
}

// ConflictError is returned when another sync already holds the account
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}
