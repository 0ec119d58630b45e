package domain

import (
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

var (
	// ErrNotLinked means the user has no mailbox account on file. The caller
	// must prompt the user to link one; retrying is pointless.
	ErrNotLinked = errors.New("gmail account not linked")

	// ErrReauthRequired means the refresh token was rejected (invalid_grant).
	// The user has to go through the OAuth consent flow again.
	ErrReauthRequired = errors.New("gmail authorization expired, please relink your account")

	// ErrQuotaExceeded maps provider rate-limit responses so the HTTP layer
	// can answer 429 instead of a generic failure.
	ErrQuotaExceeded = errors.New("provider quota exceeded, retry later")
)

// ErrorKind classifies per-item sync failures so callers can tell retryable
// failures from permanent ones without parsing message text.
type ErrorKind string

const (
	ErrorKindTransient  ErrorKind = "transient"
	ErrorKindNotFound   ErrorKind = "not_found"
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindQuota      ErrorKind = "quota"
)

// ItemError records one failed item in a batch-oriented pass
type ItemError struct {
	ItemID string    `json:"item_id"`
	Kind   ErrorKind `json:"kind"`
	Detail string    `json:"detail"`
}

func (e ItemError) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.ItemID, e.Kind, e.Detail)
}

// NewItemError classifies err and wraps it with the failing item's id
func NewItemError(itemID string, err error) ItemError {
	return ItemError{
		ItemID: itemID,
		Kind:   ClassifyError(err),
		Detail: err.Error(),
	}
}

// ClassifyError maps provider and store errors onto an ErrorKind
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ErrorKindTransient
	}
	if errors.Is(err, ErrQuotaExceeded) {
		return ErrorKindQuota
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 404:
			return ErrorKindNotFound
		case 429:
			return ErrorKindQuota
		}
	}
	return ErrorKindTransient
}

// IsQuotaExceeded reports whether err is a provider rate-limit rejection
func IsQuotaExceeded(err error) bool {
	if errors.Is(err, ErrQuotaExceeded) {
		return true
	}
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == 429
}

// IsReauthRequired reports whether err means the stored refresh token is dead.
// The oauth2 package surfaces the token endpoint's rejection as a
// RetrieveError carrying the RFC 6749 error code.
func IsReauthRequired(err error) bool {
	if errors.Is(err, ErrReauthRequired) {
		return true
	}
	var retrieveErr *oauth2.RetrieveError
	return errors.As(err, &retrieveErr) && retrieveErr.ErrorCode == "invalid_grant"
}
