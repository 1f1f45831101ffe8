package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gravadigital/urna-api/internal/domain/session"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims are the identity provider claims the API relies on
type Claims struct {
	Role  string `json:"role,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verifier turns bearer tokens into sessions
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
}

func NewVerifier(secret, issuer, audience string) *Verifier {
	return &Verifier{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
	}
}

// Verify validates signature, expiry and optional issuer/audience, then builds the session
func (v *Verifier) Verify(tokenString string) (session.Session, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return session.Anonymous(), fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return session.Anonymous(), ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return session.Anonymous(), fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}

	role, err := session.ParseRole(claims.Role)
	if err != nil {
		return session.Anonymous(), fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return session.Session{
		UserID: userID,
		Email:  claims.Email,
		Role:   role,
	}, nil
}

// Issue signs a token for the given user. The identity provider normally does
// this; the API uses it for the dev token command and tests.
func (v *Verifier) Issue(userID uuid.UUID, role session.Role, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:  role.String(),
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if v.issuer != "" {
		claims.Issuer = v.issuer
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
