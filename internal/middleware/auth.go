package middleware

import (
	"context"
	"fmt"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/hertz-contrib/jwt"

	"Mazraaty/pkg/correlation"
	"Mazraaty/pkg/errors"
	"Mazraaty/pkg/response"
	"Mazraaty/pkg/token"
)

const (
	IdentityKey = token.TenantKey
)

var (
	authMiddleware *jwt.HertzJWTMiddleware
)

func initAuthMiddleware() error {
	sharedGenerator := token.GetGenerator()
	if sharedGenerator == nil {
		return fmt.Errorf("token generator not initialized, call token.Init() first")
	}

	authMiddleware = &jwt.HertzJWTMiddleware{
		Realm:       "Mazraaty Notify API",
		Key:         sharedGenerator.Key,
		Timeout:     sharedGenerator.Timeout,
		MaxRefresh:  sharedGenerator.MaxRefresh,
		IdentityKey: sharedGenerator.IdentityKey,
		TimeFunc:    sharedGenerator.TimeFunc,

		IdentityHandler: func(ctx context.Context, c *app.RequestContext) interface{} {
			claims := jwt.ExtractClaims(ctx, c)
			tenantID, ok := claims[IdentityKey].(string)
			if !ok || tenantID == "" {
				return nil
			}
			if userID, ok := claims[token.UserKey].(string); ok {
				c.Set(token.UserKey, userID)
			}
			return tenantID
		},

		Unauthorized: func(ctx context.Context, c *app.RequestContext, code int, message string) {
			c.JSON(code, response.ErrorResponse{
				Error: response.ErrorDetail{
					Code:    "UNAUTHORIZED",
					Message: message,
				},
			})
		},

		TokenLookup:   "header: Authorization",
		TokenHeadName: "Bearer",
	}

	return nil
}

func AuthMiddleware() app.HandlerFunc {
	if authMiddleware == nil {
		panic("AuthMiddleware not initialized, call Init() first")
	}
	return authMiddleware.MiddlewareFunc()
}

// TenantMiddleware runs after auth: it rejects requests whose X-Tenant-Id
// header disagrees with the token's tenant claim and propagates the caller
// identity into the request context for logging and downstream calls.
func TenantMiddleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		tenantID, ok := GetTenantID(ctx, c)
		if !ok {
			c.Abort()
			response.Error(ctx, c, errors.Unauthorized)
			return
		}

		if header := string(c.GetHeader(correlation.HeaderTenantID)); header != "" && header != tenantID {
			c.Abort()
			response.Error(ctx, c, errors.TenantMismatch)
			return
		}

		ctx = correlation.WithTenantID(ctx, tenantID)
		if userID, exists := GetUserID(ctx, c); exists {
			ctx = correlation.WithUserID(ctx, userID)
		}

		c.Next(ctx)
	}
}

// GetTenantID returns the authenticated tenant from the request context.
func GetTenantID(ctx context.Context, c *app.RequestContext) (string, bool) {
	v, exists := c.Get(IdentityKey)
	if !exists {
		return "", false
	}

	id, ok := v.(string)
	if !ok || id == "" {
		return "", false
	}

	return id, true
}

// GetUserID returns the acting user when the token carried one.
func GetUserID(ctx context.Context, c *app.RequestContext) (string, bool) {
	v, exists := c.Get(token.UserKey)
	if !exists {
		return "", false
	}

	id, ok := v.(string)
	return id, ok && id != ""
}
