package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"subscription-app/config"
)

var (
	verifierOnce sync.Once
	verifier     *oidc.IDTokenVerifier
	verifierErr  error
)

func oidcVerifier(c *gin.Context) (*oidc.IDTokenVerifier, error) {
	verifierOnce.Do(func() {
		provider, err := oidc.NewProvider(c.Request.Context(), config.OIDC_ISSUER)
		if err != nil {
			verifierErr = fmt.Errorf("oidc discovery failed: %w", err)
			return
		}
		verifier = provider.Verifier(&oidc.Config{ClientID: config.OIDC_CLIENT_ID})
	})
	return verifier, verifierErr
}

// AuthMiddleware validates the bearer token the external identity provider
// issued and exposes the account identifier to handlers. With OIDC_ISSUER
// set, tokens are verified against the issuer's keys; otherwise they are
// HMAC tokens signed with the shared JWT_SECRET.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header missing"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Bearer token malformed"})
			return
		}

		var accountID string
		var err error
		if config.OIDC_ISSUER != "" {
			accountID, err = verifyWithIssuer(c, tokenString)
		} else {
			accountID, err = verifyHMAC(tokenString)
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		if accountID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token missing account identity"})
			return
		}

		c.Set("account_id", accountID)
		c.Next()
	}
}

func verifyWithIssuer(c *gin.Context, raw string) (string, error) {
	v, err := oidcVerifier(c)
	if err != nil {
		log.Error().Err(err).Msg("oidc verifier unavailable")
		return "", err
	}
	idToken, err := v.Verify(c.Request.Context(), raw)
	if err != nil {
		return "", err
	}
	var claims struct {
		Subject   string `json:"sub"`
		AccountID string `json:"account_id"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return "", err
	}
	if claims.AccountID != "" {
		return claims.AccountID, nil
	}
	return claims.Subject, nil
}

func verifyHMAC(raw string) (string, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.JWT_SECRET), nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}
	if accountID, ok := claims["account_id"].(string); ok && accountID != "" {
		return accountID, nil
	}
	if sub, ok := claims["sub"].(string); ok {
		return sub, nil
	}
	return "", nil
}
