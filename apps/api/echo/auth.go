package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/skilltrack/core"
	"github.com/trezcool/skilltrack/core/access"
	"github.com/trezcool/skilltrack/core/record"
)

// appJWTConfig is the default JWT auth middleware config. Identity claims are
// issued and verified upstream; this API only decodes the verified email.
var appJWTConfig = middleware.JWTConfig{
	SigningMethod: middleware.AlgorithmHS256,
	ContextKey:    "userToken",
	Claims:        new(Claims),
}

// Claims represents the identity claims transmitted via a JWT. Email is the
// caller's verified identity and is trusted as-is.
type Claims struct {
	jwt.StandardClaims
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// ConfigureAuth sets the signing parameters; call before registering routes.
func ConfigureAuth(conf *core.Config) {
	appJWTConfig.SigningKey = []byte(conf.SecretKey)
}

// GetIdentityClaims builds the claims an upstream authenticator would issue
// for this email; used by tests and tooling to mint identities.
func GetIdentityClaims(conf *core.Config, email string) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   email,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Email: email,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(appJWTConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(appJWTConfig.SigningKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// resolveCaller builds the caller's authorization context from their User
// record. Operations that bootstrap records on first access must not use this.
func resolveCaller(ctx echo.Context, store record.Store) (access.Caller, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return access.Caller{}, err
	}
	caller, err := access.Resolve(ctx.Request().Context(), store, claims.Email)
	return caller, errors.Wrap(err, "resolving caller")
}
