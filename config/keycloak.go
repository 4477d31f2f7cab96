package config

import (
	"github.com/athebyme/gomarket-orders/pkg/auth"
)

// KeycloakConfig представляет конфигурацию Keycloak для административного API
type KeycloakConfig struct {
	Enabled   bool
	ServerURL string `validate:"required_if=Enabled true"`
	Realm     string `validate:"required_if=Enabled true"`
	ClientID  string `validate:"required_if=Enabled true"`
}

// GetKeycloakConfig возвращает конфигурацию для auth.KeycloakClient
func (k *KeycloakConfig) GetKeycloakConfig() auth.KeycloakConfig {
	return auth.KeycloakConfig{
		ServerURL: k.ServerURL,
		Realm:     k.Realm,
		ClientID:  k.ClientID,
	}
}
