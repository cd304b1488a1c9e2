package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

const groupsClaim = "cognito:groups"

// CognitoJWKSURL is where Cognito publishes the public keys of a user pool.
func CognitoJWKSURL(region, poolID string) string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s/.well-known/jwks.json", region, poolID)
}

type TokenData struct {
	Sub      string
	Email    string
	Username string
	Groups   []string
	Exp      int64
}

// TokenValidator validates bearer tokens issued by the identity provider
// against its published signing keys.
type TokenValidator struct {
	keyfunc jwt.Keyfunc
	opts    []jwt.ParserOption
}

func NewTokenValidator(jwksURL, issuer string) (*TokenValidator, error) {
	jwks, err := keyfunc.NewDefault([]string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS from resource at %s: %w", jwksURL, err)
	}

	log.Infof("JWKS initialized. Keys loaded from %s", jwksURL)
	return NewTokenValidatorWithKeyfunc(jwks.Keyfunc, issuer), nil
}

// NewTokenValidatorWithKeyfunc builds a validator over an arbitrary key source.
func NewTokenValidatorWithKeyfunc(kf jwt.Keyfunc, issuer string) *TokenValidator {
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &TokenValidator{keyfunc: kf, opts: opts}
}

// ValidateToken parses AND validates the signature locally.
// It returns the data if the token is authentic and unexpired.
func (v *TokenValidator) ValidateToken(tokenString string) (*TokenData, error) {
	clean := sanitizeToken(tokenString)
	if clean == "" {
		return nil, errors.New("missing token")
	}

	token, err := jwt.Parse(clean, v.keyfunc, v.opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if !token.Valid {
		return nil, errors.New("token is not valid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims format")
	}

	sub := getValue(claims, "sub")
	if sub == "" {
		return nil, errors.New("token has no subject")
	}

	username := getValue(claims, "cognito:username")
	if username == "" {
		username = getValue(claims, "username")
	}

	return &TokenData{
		Sub:      sub,
		Email:    getValue(claims, "email"),
		Username: username,
		Groups:   getStrings(claims, groupsClaim),
		Exp:      getInt64(claims, "exp"),
	}, nil
}

func (v *TokenValidator) ParseTokenDataCtx(ctx echo.Context) (*TokenData, error) {
	token := ctx.Request().Header.Get(echo.HeaderAuthorization)
	return v.ValidateToken(token)
}

func sanitizeToken(token string) string {
	return strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
}

func getValue(claims jwt.MapClaims, key string) string {
	if val, ok := claims[key].(string); ok {
		return val
	}
	return ""
}

func getStrings(claims jwt.MapClaims, key string) []string {
	raw, ok := claims[key].([]any)
	if !ok {
		return nil
	}

	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func getInt64(claims jwt.MapClaims, key string) int64 {
	val, ok := claims[key]
	if !ok {
		return 0
	}
	if f, ok := val.(float64); ok {
		return int64(f)
	}
	if i, ok := val.(int64); ok {
		return i
	}
	return 0
}
