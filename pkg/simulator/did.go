package simulator

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// DIDDocumentEndpoint publishes the did:web document relying parties
// resolve to verify the nested core identity credential. The assertion
// method carries the same public key as the JWKS.
func (s *Server) DIDDocumentEndpoint(c echo.Context) error {
	controller := s.cfg.DIDController()
	key := s.keyProvider.PublicKey()
	keyID := controller + "#" + key.KeyID()

	return c.JSON(http.StatusOK, map[string]any{
		"@context": []string{
			"https://www.w3.org/ns/did/v1",
			"https://w3id.org/security/jwk/v1",
		},
		"id": controller,
		"assertionMethod": []map[string]any{
			{
				"id":           keyID,
				"type":         "JsonWebKey",
				"controller":   controller,
				"publicKeyJwk": key,
			},
		},
	})
}
