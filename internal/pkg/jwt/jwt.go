package jwt

import (
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Role carried in the "role" claim.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

const TokenTypeAccess = "access"

var ErrInvalidRole = errors.New("invalid role")

// Service signs and verifies access tokens. Tokens are issued by the HR
// core's identity service; GenerateAccessToken exists for local runs and
// tests.
type Service interface {
	GenerateAccessToken(memberID string, companyID string, role Role) (token string, expiresAt int64, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenExpirationTime string
	tokenAuth                 *jwtauth.JWTAuth
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenExpirationTime string) Service {
	return &JWTService{
		accessTokenExpirationTime: accessTokenExpirationTime,
		tokenAuth:                 jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

func (j *JWTService) GenerateAccessToken(memberID string, companyID string, role Role) (token string, expiresAt int64, err error) {
	if role != RoleAdmin && role != RoleMember {
		return "", 0, ErrInvalidRole
	}

	expDuration, err := time.ParseDuration(j.accessTokenExpirationTime)
	if err != nil {
		return "", 0, err
	}
	expiresAt = time.Now().Add(expDuration).Unix()

	claims := map[string]interface{}{
		"member_id":  memberID,
		"company_id": companyID,
		"role":       string(role),
		"type":       TokenTypeAccess,
		"exp":        expiresAt,
	}

	_, tokenString, err := j.tokenAuth.Encode(claims)
	return tokenString, expiresAt, err
}
