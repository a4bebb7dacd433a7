package token

import (
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/hertz-contrib/jwt"

	"Mazraaty/config"
)

// Claim keys carried by service tokens. Producers (field, irrigation,
// marketplace services) authenticate with a token scoped to one tenant.
const (
	TenantKey = "tenant_id"
	UserKey   = "user_id"
)

var (
	// Shared between this package and the auth middleware.
	sharedGenerator *jwt.HertzJWTMiddleware

	ErrGeneratorNotInitialized = errors.New("token generator not initialized")
)

func Init() error {
	var err error
	sharedGenerator, err = jwt.New(&jwt.HertzJWTMiddleware{
		Key:         []byte(config.Cfg.JWTSecret),
		Timeout:     time.Duration(config.Cfg.JWTExpireMinutes) * time.Minute,
		IdentityKey: TenantKey,
		TimeFunc:    time.Now,
	})

	if err != nil {
		return fmt.Errorf("failed to initialize token generator: %w", err)
	}

	return nil
}

// GetGenerator returns the shared generator for the auth middleware.
func GetGenerator() *jwt.HertzJWTMiddleware {
	return sharedGenerator
}

// GenerateServiceToken issues a token for an upstream service acting on
// behalf of one tenant. Used by the seed tooling and tests.
func GenerateServiceToken(tenantID, userID string) (string, error) {
	if sharedGenerator == nil {
		return "", ErrGeneratorNotInitialized
	}

	now := time.Now()
	claims := jwtv5.MapClaims{
		TenantKey: tenantID,
		"iat":     now.Unix(),
		"exp":     now.Add(time.Duration(config.Cfg.JWTExpireMinutes) * time.Minute).Unix(),
	}
	if userID != "" {
		claims[UserKey] = userID
	}

	tokenObj := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	signed, err := tokenObj.SignedString([]byte(config.Cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign service token: %w", err)
	}

	return signed, nil
}
