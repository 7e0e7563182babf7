package simulator

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	claimAddress       = "https://vocab.account.gov.uk/v1/address"
	claimPassport      = "https://vocab.account.gov.uk/v1/passport"
	claimDrivingPermit = "https://vocab.account.gov.uk/v1/drivingPermit"
)

// UserInfoEndpoint serves the claims a bearer token was granted. The
// token must verify against the simulator's own key and must be one the
// token endpoint actually issued for that (client, subject) pair.
func (s *Server) UserInfoEndpoint(c echo.Context) error {
	authorization := c.Request().Header.Get(echo.HeaderAuthorization)
	bearer, found := strings.CutPrefix(authorization, "Bearer ")
	if !found {
		return s.unauthorized(c, "missing bearer token")
	}

	token, err := jwt.Parse([]byte(bearer),
		jwt.WithKey(s.keyProvider.Algorithm(), s.keyProvider.PublicKey()),
		jwt.WithIssuer(s.cfg.IssuerValue()),
		jwt.WithValidate(true),
	)
	if err != nil {
		slog.Warn("rejecting userinfo access token", "error", err)
		return s.unauthorized(c, "invalid access token")
	}

	clientID := stringClaim(token, "client_id")
	sub := token.Subject()

	if !contains(s.tokenStore.Tokens(clientID, sub), bearer) {
		return s.unauthorized(c, "access token not issued by this simulator")
	}

	scopes := stringSliceClaim(token, "scope")
	claims := stringSliceClaim(token, "claims")
	user := s.cfg.User(sub)
	client := s.cfg.Client()

	info := map[string]any{"sub": sub}

	if contains(scopes, "email") {
		info["email"] = user.Response.Email
		info["email_verified"] = user.Response.EmailVerified
	}
	if contains(scopes, "phone") {
		info["phone_number"] = user.Response.PhoneNumber
		info["phone_number_verified"] = user.Response.PhoneNumberVerified
	}

	if contains(claims, claimCoreIdentity) && client.IdentityVerificationSupported {
		credential, err := s.buildCoreIdentityJWT(&RequestContext{Sub: sub}, client, user)
		if err != nil {
			return fmt.Errorf("build core identity credential: %w", err)
		}
		info[claimCoreIdentity] = credential
	}
	if contains(claims, claimAddress) && len(user.Response.PostalAddressDetails) > 0 {
		info[claimAddress] = user.Response.PostalAddressDetails
	}
	if contains(claims, claimPassport) && len(user.Response.PassportDetails) > 0 {
		info[claimPassport] = user.Response.PassportDetails
	}
	if contains(claims, claimDrivingPermit) && len(user.Response.DrivingPermitDetails) > 0 {
		info[claimDrivingPermit] = user.Response.DrivingPermitDetails
	}
	if contains(claims, claimReturnCode) && len(user.Response.ReturnCodes) > 0 {
		info[claimReturnCode] = user.Response.ReturnCodes
	}

	return c.JSON(http.StatusOK, info)
}

func (s *Server) unauthorized(c echo.Context, description string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer error="invalid_token"`)
	return &Error{
		HttpStatus:  http.StatusUnauthorized,
		Code:        "invalid_token",
		Description: description,
	}
}

func stringClaim(token jwt.Token, name string) string {
	v, ok := token.Get(name)
	if !ok {
		return ""
	}
	str, _ := v.(string)
	return str
}

func stringSliceClaim(token jwt.Token, name string) []string {
	v, ok := token.Get(name)
	if !ok {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if str, ok := item.(string); ok {
			out = append(out, str)
		}
	}
	return out
}
