package config

import (
	"fmt"
	"os"
	"reflect"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// FileConfig is the optional YAML configuration file. Values present in
// the file override the environment-derived defaults.
type FileConfig struct {
	SimulatorURL string               `yaml:"simulator_url"`
	Client       *ClientConfiguration `yaml:"client"`
	Users        []UserConfiguration  `yaml:"users" validate:"omitempty,dive"`
}

// LoadFile merges a YAML configuration file into the Config.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file '%s': %w", path, err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("unmarshal config file '%s': %w", path, err)
	}

	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("yaml")
	})
	if fc.Client != nil {
		if err := validate.Struct(fc.Client); err != nil {
			return fmt.Errorf("invalid client configuration in '%s': %w", path, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if fc.SimulatorURL != "" {
		c.simulatorURL = fc.SimulatorURL
	}
	if fc.Client != nil {
		c.client = *fc.Client
	}
	for i := range fc.Users {
		u := fc.Users[i]
		if u.Response.Sub == "" {
			return fmt.Errorf("user entry %d in '%s' is missing a sub", i, path)
		}
		existing := c.userLocked(u.Response.Sub)
		*existing = u
	}

	return nil
}
