package domain

import "time"

// AuthConfig controls bearer token issuance.
type AuthConfig struct {
	Issuer   string        `yaml:"issuer"`
	Secret   string        `yaml:"-"`
	TokenTTL time.Duration `yaml:"tokenTTL"`
}
