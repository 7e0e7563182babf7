package simulator

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/govuk-one-login/go-simulator/pkg/config"
)

// UpdateConfigEndpoint applies a partial configuration update. Fields
// absent from the body are left untouched; an update naming a subject
// without error codes clears that subject's injected errors.
func (s *Server) UpdateConfigEndpoint(c echo.Context) error {
	var req config.UpdateRequest
	if err := c.Bind(&req); err != nil {
		return &Error{
			HttpStatus:  http.StatusBadRequest,
			Code:        "invalid_request",
			Description: "unable to parse configuration update",
		}
	}
	if err := req.Validate(); err != nil {
		return &Error{
			HttpStatus:  http.StatusBadRequest,
			Code:        "invalid_request",
			Description: err.Error(),
		}
	}

	s.cfg.Apply(&req)
	slog.Info("configuration updated")
	return c.NoContent(http.StatusOK)
}

type configSnapshot struct {
	ClientConfiguration config.ClientConfiguration `json:"clientConfiguration"`
	Users               []config.UserConfiguration `json:"users"`
	SimulatorURL        string                     `json:"simulatorUrl"`
}

func (s *Server) GetConfigEndpoint(c echo.Context) error {
	return c.JSON(http.StatusOK, &configSnapshot{
		ClientConfiguration: s.cfg.Client(),
		Users:               s.cfg.Users(),
		SimulatorURL:        s.cfg.SimulatorURL(),
	})
}

// DeleteUserConfigEndpoint forgets a subject's configuration. The next
// request for that subject sees defaults again.
func (s *Server) DeleteUserConfigEndpoint(c echo.Context) error {
	sub := c.Param("sub")
	s.cfg.DeleteUser(sub)
	slog.Info("user configuration deleted", "sub", sub)
	return c.NoContent(http.StatusOK)
}
