package config

import "log/slog"

// Error injection is configured per subject and surfaces at exactly one
// stage of the token exchange. Each stage has its own closed set of
// error variants; unrecognized codes are dropped at parse time.

// CoreIdentityError corrupts the nested core identity credential.
type CoreIdentityError string

const (
	CoreIdentityInvalidAlgHeader CoreIdentityError = "INVALID_ALG_HEADER"
	CoreIdentityInvalidSignature CoreIdentityError = "INVALID_SIGNATURE"
	CoreIdentityInvalidIss       CoreIdentityError = "INVALID_ISS"
	CoreIdentityInvalidAud       CoreIdentityError = "INVALID_AUD"
	CoreIdentityIncorrectSub     CoreIdentityError = "INCORRECT_SUB"
	CoreIdentityExpired          CoreIdentityError = "EXPIRED"
)

// IDTokenError corrupts the issued identity assertion.
type IDTokenError string

const (
	IDTokenInvalidIss        IDTokenError = "INVALID_ISS"
	IDTokenInvalidAud        IDTokenError = "INVALID_AUD"
	IDTokenInvalidAlgHeader  IDTokenError = "INVALID_ALG_HEADER"
	IDTokenInvalidSignature  IDTokenError = "INVALID_SIGNATURE"
	IDTokenExpired           IDTokenError = "TOKEN_EXPIRED"
	IDTokenNotValidYet       IDTokenError = "TOKEN_NOT_VALID_YET"
	IDTokenNonceNotMatching  IDTokenError = "NONCE_NOT_MATCHING"
	IDTokenIncorrectVot      IDTokenError = "INCORRECT_VOT"
)

// AuthoriseError aborts the token exchange before any claims are
// assembled, simulating provider-side refusal.
type AuthoriseError string

const (
	AuthoriseAccessDenied           AuthoriseError = "ACCESS_DENIED"
	AuthoriseTemporarilyUnavailable AuthoriseError = "TEMPORARILY_UNAVAILABLE"
)

func ParseCoreIdentityError(s string) (CoreIdentityError, bool) {
	switch CoreIdentityError(s) {
	case CoreIdentityInvalidAlgHeader, CoreIdentityInvalidSignature,
		CoreIdentityInvalidIss, CoreIdentityInvalidAud,
		CoreIdentityIncorrectSub, CoreIdentityExpired:
		return CoreIdentityError(s), true
	}
	return "", false
}

func ParseIDTokenError(s string) (IDTokenError, bool) {
	switch IDTokenError(s) {
	case IDTokenInvalidIss, IDTokenInvalidAud, IDTokenInvalidAlgHeader,
		IDTokenInvalidSignature, IDTokenExpired, IDTokenNotValidYet,
		IDTokenNonceNotMatching, IDTokenIncorrectVot:
		return IDTokenError(s), true
	}
	return "", false
}

func ParseAuthoriseError(s string) (AuthoriseError, bool) {
	switch AuthoriseError(s) {
	case AuthoriseAccessDenied, AuthoriseTemporarilyUnavailable:
		return AuthoriseError(s), true
	}
	return "", false
}

// ErrorConfiguration holds the per-subject error injection switches.
type ErrorConfiguration struct {
	CoreIdentityErrors []CoreIdentityError `json:"coreIdentityErrors" yaml:"core_identity_errors"`
	IDTokenErrors      []IDTokenError      `json:"idTokenErrors" yaml:"id_token_errors"`
	AuthoriseErrors    []AuthoriseError    `json:"authoriseErrors" yaml:"authorise_errors"`
}

func parseCoreIdentityErrors(values []string) []CoreIdentityError {
	errs := []CoreIdentityError{}
	for _, v := range values {
		e, ok := ParseCoreIdentityError(v)
		if !ok {
			slog.Warn("dropping unknown core identity error", "value", v)
			continue
		}
		errs = append(errs, e)
	}
	return errs
}

func parseIDTokenErrors(values []string) []IDTokenError {
	errs := []IDTokenError{}
	for _, v := range values {
		e, ok := ParseIDTokenError(v)
		if !ok {
			slog.Warn("dropping unknown id token error", "value", v)
			continue
		}
		errs = append(errs, e)
	}
	return errs
}

func parseAuthoriseErrors(values []string) []AuthoriseError {
	errs := []AuthoriseError{}
	for _, v := range values {
		e, ok := ParseAuthoriseError(v)
		if !ok {
			slog.Warn("dropping unknown authorise error", "value", v)
			continue
		}
		errs = append(errs, e)
	}
	return errs
}
