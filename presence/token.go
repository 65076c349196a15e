package presence

import "github.com/golang-jwt/jwt/v5"

// identity is what the SDK needs to know about the local user: enough to
// exclude their own entry from roster reads.
type identity struct {
	UserID   string
	Username string
}

type tokenClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// identityFromToken extracts the local user from the bootstrap JWT. The
// signature belongs to the server; the client only reads the claims, so the
// token is parsed unverified.
func identityFromToken(token string) (identity, error) {
	claims := &tokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return identity{}, WrapError(ErrorUnauthorized, "parse auth token", err)
	}
	if claims.Subject == "" {
		return identity{}, NewError(ErrorUnauthorized, "auth token has no subject")
	}
	return identity{UserID: claims.Subject, Username: claims.Username}, nil
}
