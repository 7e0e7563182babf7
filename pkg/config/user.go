package config

import (
	"os"
	"strings"
)

const defaultSub = "urn:fdc:gov.uk:2022:56P4CMsGh_02YOlWpd8PAOI-2sVlB2nsNU7mcLZYhYw="

// ReturnCode is an operator-defined outcome code returned in place of a
// core identity when identity proofing could not complete.
type ReturnCode struct {
	Code string `json:"code" yaml:"code"`
}

// ResponseConfiguration holds the claim values returned for one subject.
type ResponseConfiguration struct {
	Sub                               string           `json:"sub" yaml:"sub"`
	Email                             string           `json:"email" yaml:"email"`
	EmailVerified                     bool             `json:"emailVerified" yaml:"email_verified"`
	PhoneNumber                       string           `json:"phoneNumber" yaml:"phone_number"`
	PhoneNumberVerified               bool             `json:"phoneNumberVerified" yaml:"phone_number_verified"`
	MaxLoCAchieved                    string           `json:"maxLoCAchieved" yaml:"max_loc_achieved"`
	CoreIdentityVerifiableCredentials map[string]any   `json:"coreIdentityVerifiableCredentials" yaml:"core_identity_verifiable_credentials"`
	PassportDetails                   []map[string]any `json:"passportDetails" yaml:"passport_details"`
	DrivingPermitDetails              []map[string]any `json:"drivingPermitDetails" yaml:"driving_permit_details"`
	PostalAddressDetails              []map[string]any `json:"postalAddressDetails" yaml:"postal_address_details"`
	ReturnCodes                       []ReturnCode     `json:"returnCodes" yaml:"return_codes"`
}

// UserConfiguration pairs a subject's response data with its error
// injection settings.
type UserConfiguration struct {
	Response ResponseConfiguration `json:"response" yaml:"response"`
	Error    ErrorConfiguration    `json:"error" yaml:"error"`
}

func newUserConfiguration(sub string) *UserConfiguration {
	return &UserConfiguration{
		Response: ResponseConfiguration{
			Sub:                 sub,
			Email:               envString("EMAIL", "test@example.com"),
			EmailVerified:       envBool("EMAIL_VERIFIED", true),
			PhoneNumber:         envString("PHONE_NUMBER", "07123456789"),
			PhoneNumberVerified: envBool("PHONE_NUMBER_VERIFIED", true),
			MaxLoCAchieved:      "P2",
			CoreIdentityVerifiableCredentials: map[string]any{
				"type": []any{"VerifiableCredential", "IdentityCheckCredential"},
				"credentialSubject": map[string]any{
					"name": []any{
						map[string]any{
							"nameParts": []any{
								map[string]any{"value": "GEOFFREY", "type": "GivenName"},
								map[string]any{"value": "HEARNSHAW", "type": "FamilyName"},
							},
						},
					},
					"birthDate": []any{
						map[string]any{"value": "1955-04-19"},
					},
				},
			},
			PostalAddressDetails: []map[string]any{
				{
					"addressCountry":  "GB",
					"buildingName":    "",
					"streetName":      "FRAMPTON ROAD",
					"postalCode":      "GL1 5QB",
					"buildingNumber":  "26",
					"addressLocality": "GLOUCESTER",
					"validFrom":       "2000-01-01",
					"uprn":            100120472196,
					"subBuildingName": "",
				},
			},
			ReturnCodes: []ReturnCode{},
		},
		Error: ErrorConfiguration{
			CoreIdentityErrors: parseCoreIdentityErrors(envErrorList("CORE_IDENTITY_ERRORS")),
			IDTokenErrors:      parseIDTokenErrors(envErrorList("ID_TOKEN_ERRORS")),
			AuthoriseErrors:    parseAuthoriseErrors(envErrorList("AUTHORISE_ERRORS")),
		},
	}
}

func envErrorList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	return splitCSV(v)
}

func splitCSV(v string) []string {
	parts := []string{}
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
