package config

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// UpdateRequest is the body of a configuration update. All fields are
// optional; only present fields are applied.
type UpdateRequest struct {
	ClientConfiguration   *ClientPatch   `json:"clientConfiguration,omitempty"`
	ResponseConfiguration *ResponsePatch `json:"responseConfiguration,omitempty"`
	ErrorConfiguration    *ErrorPatch    `json:"errorConfiguration,omitempty"`
	SimulatorURL          *string        `json:"simulatorUrl,omitempty" validate:"omitempty,url"`
}

type ClientPatch struct {
	ClientID                      *string  `json:"clientId,omitempty"`
	PublicKey                     *string  `json:"publicKey,omitempty"`
	Scopes                        []string `json:"scopes,omitempty"`
	RedirectURLs                  []string `json:"redirectUrls,omitempty" validate:"omitempty,dive,uri"`
	PostLogoutRedirectURLs        []string `json:"postLogoutRedirectUrls,omitempty" validate:"omitempty,dive,uri"`
	Claims                        []string `json:"claims,omitempty"`
	IdentityVerificationSupported *bool    `json:"identityVerificationSupported,omitempty"`
	IDTokenSigningAlgorithm       *string  `json:"idTokenSigningAlgorithm,omitempty" validate:"omitempty,oneof=ES256 RS256"`
	ClientLoCs                    []string `json:"clientLoCs,omitempty" validate:"omitempty,dive,oneof=P0 P1 P2"`
}

type ResponsePatch struct {
	Sub                               *string          `json:"sub,omitempty"`
	Email                             *string          `json:"email,omitempty"`
	EmailVerified                     *bool            `json:"emailVerified,omitempty"`
	PhoneNumber                       *string          `json:"phoneNumber,omitempty"`
	PhoneNumberVerified               *bool            `json:"phoneNumberVerified,omitempty"`
	MaxLoCAchieved                    *string          `json:"maxLoCAchieved,omitempty" validate:"omitempty,oneof=P0 P1 P2"`
	CoreIdentityVerifiableCredentials map[string]any   `json:"coreIdentityVerifiableCredentials,omitempty"`
	PassportDetails                   []map[string]any `json:"passportDetails,omitempty"`
	DrivingPermitDetails              []map[string]any `json:"drivingPermitDetails,omitempty"`
	PostalAddressDetails              []map[string]any `json:"postalAddressDetails,omitempty"`
	ReturnCodes                       []ReturnCode     `json:"returnCodes,omitempty"`
}

// ErrorPatch carries raw error codes; unknown codes are dropped when the
// patch is applied.
type ErrorPatch struct {
	CoreIdentityErrors []string `json:"coreIdentityErrors,omitempty"`
	IDTokenErrors      []string `json:"idTokenErrors,omitempty"`
	AuthoriseErrors    []string `json:"authoriseErrors,omitempty"`
}

// Validate checks an update request. Field names in validation errors
// use the JSON names seen by the caller.
func (r *UpdateRequest) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return validate.Struct(r)
}

// Apply merges an update request into the configuration. The response
// and error patches target the subject named in the request; applying an
// error patch without any codes clears the subject's injected errors,
// matching the replace-not-merge semantics operators rely on between
// test runs.
func (c *Config) Apply(req *UpdateRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if req.ClientConfiguration != nil {
		c.applyClientLocked(req.ClientConfiguration)
	}

	if req.ResponseConfiguration != nil && req.ResponseConfiguration.Sub != nil {
		user := c.userLocked(*req.ResponseConfiguration.Sub)
		applyResponse(&user.Response, req.ResponseConfiguration)
		applyErrors(&user.Error, req.ErrorConfiguration)
	}

	if req.SimulatorURL != nil {
		c.simulatorURL = *req.SimulatorURL
	}
}

func (c *Config) applyClientLocked(p *ClientPatch) {
	if p.ClientID != nil {
		c.client.ClientID = *p.ClientID
	}
	if p.PublicKey != nil {
		c.client.PublicKey = *p.PublicKey
	}
	if p.Scopes != nil {
		c.client.Scopes = p.Scopes
	}
	if p.RedirectURLs != nil {
		c.client.RedirectURLs = p.RedirectURLs
	}
	if p.PostLogoutRedirectURLs != nil {
		c.client.PostLogoutRedirectURLs = p.PostLogoutRedirectURLs
	}
	if p.Claims != nil {
		c.client.Claims = p.Claims
	}
	if p.IdentityVerificationSupported != nil {
		c.client.IdentityVerificationSupported = *p.IdentityVerificationSupported
	}
	if p.IDTokenSigningAlgorithm != nil {
		c.client.IDTokenSigningAlgorithm = *p.IDTokenSigningAlgorithm
	}
	if p.ClientLoCs != nil {
		c.client.ClientLoCs = p.ClientLoCs
	}
}

func applyResponse(r *ResponseConfiguration, p *ResponsePatch) {
	if p.Email != nil {
		r.Email = *p.Email
	}
	if p.EmailVerified != nil {
		r.EmailVerified = *p.EmailVerified
	}
	if p.PhoneNumber != nil {
		r.PhoneNumber = *p.PhoneNumber
	}
	if p.PhoneNumberVerified != nil {
		r.PhoneNumberVerified = *p.PhoneNumberVerified
	}
	if p.MaxLoCAchieved != nil {
		r.MaxLoCAchieved = *p.MaxLoCAchieved
	}
	if p.CoreIdentityVerifiableCredentials != nil {
		r.CoreIdentityVerifiableCredentials = p.CoreIdentityVerifiableCredentials
	}
	if p.PassportDetails != nil {
		r.PassportDetails = p.PassportDetails
	}
	if p.DrivingPermitDetails != nil {
		r.DrivingPermitDetails = p.DrivingPermitDetails
	}
	if p.PostalAddressDetails != nil {
		r.PostalAddressDetails = p.PostalAddressDetails
	}
	if p.ReturnCodes != nil {
		r.ReturnCodes = p.ReturnCodes
	}
}

func applyErrors(e *ErrorConfiguration, p *ErrorPatch) {
	if p == nil {
		e.CoreIdentityErrors = []CoreIdentityError{}
		e.IDTokenErrors = []IDTokenError{}
		e.AuthoriseErrors = []AuthoriseError{}
		return
	}
	e.CoreIdentityErrors = parseCoreIdentityErrors(p.CoreIdentityErrors)
	e.IDTokenErrors = parseIDTokenErrors(p.IDTokenErrors)
	e.AuthoriseErrors = parseAuthoriseErrors(p.AuthoriseErrors)
}
