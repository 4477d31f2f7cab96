package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/athebyme/gomarket-orders/pkg/interfaces"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/patrickmn/go-cache"
)

// KeycloakConfig конфигурация для Keycloak
type KeycloakConfig struct {
	ServerURL string
	Realm     string
	ClientID  string
}

// KeycloakClaims представляет собой структуру claims из токена Keycloak
type KeycloakClaims struct {
	UserID      string `json:"sub"`
	Username    string `json:"preferred_username"`
	Email       string `json:"email"`
	RealmAccess struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
	ResourceAccess map[string]struct {
		Roles []string `json:"roles"`
	} `json:"resource_access"`
}

// tokenVerifier проверка подписи и срока действия токена
type tokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

// KeycloakClient проверяет токены Keycloak и реализует interfaces.AuthPort
type KeycloakClient struct {
	verifier   tokenVerifier
	tokenCache *cache.Cache
	clientID   string
}

// NewKeycloakClient создает новый клиент Keycloak
func NewKeycloakClient(ctx context.Context, cfg KeycloakConfig) (*KeycloakClient, error) {
	providerURL := fmt.Sprintf("%s/realms/%s", cfg.ServerURL, cfg.Realm)

	provider, err := oidc.NewProvider(ctx, providerURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания OIDC провайдера: %w", err)
	}

	// access token Keycloak содержит aud=account, поэтому проверку client id отключаем,
	// роли клиента проверяются по resource_access
	verifier := provider.Verifier(&oidc.Config{
		ClientID:          cfg.ClientID,
		SkipClientIDCheck: true,
	})

	return newKeycloakClient(verifier, cfg.ClientID), nil
}

func newKeycloakClient(verifier tokenVerifier, clientID string) *KeycloakClient {
	return &KeycloakClient{
		verifier:   verifier,
		tokenCache: cache.New(5*time.Minute, 10*time.Minute),
		clientID:   clientID,
	}
}

// ValidateToken проверяет JWT токен и возвращает пользователя
func (k *KeycloakClient) ValidateToken(ctx context.Context, tokenString string) (*interfaces.Principal, error) {
	if cached, found := k.tokenCache.Get(tokenString); found {
		return cached.(*interfaces.Principal), nil
	}

	idToken, err := k.verifier.Verify(ctx, tokenString)
	if err != nil {
		return nil, fmt.Errorf("ошибка верификации токена: %w", err)
	}

	var claims KeycloakClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("ошибка извлечения claims: %w", err)
	}

	principal := k.toPrincipal(&claims)

	if expiresIn := time.Until(idToken.Expiry); expiresIn > 0 {
		k.tokenCache.Set(tokenString, principal, expiresIn)
	}

	return principal, nil
}

// toPrincipal объединяет роли realm и роли клиента
func (k *KeycloakClient) toPrincipal(claims *KeycloakClaims) *interfaces.Principal {
	roles := append([]string{}, claims.RealmAccess.Roles...)
	if clientRoles, ok := claims.ResourceAccess[k.clientID]; ok {
		roles = append(roles, clientRoles.Roles...)
	}

	return &interfaces.Principal{
		UserID:   claims.UserID,
		Username: claims.Username,
		Roles:    roles,
	}
}
