package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v4"
)

// JWTResolver はHS256で署名されたJWTをローカルで検証し、subクレームをユーザーIDとして返す。
type JWTResolver struct {
	secret   []byte
	audience string
}

// NewJWTResolver はJWTResolverを生成する。
// audienceが空でない場合はaudクレームの一致も検証する。
func NewJWTResolver(secret, audience string) (*JWTResolver, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret cannot be empty")
	}
	return &JWTResolver{secret: []byte(secret), audience: audience}, nil
}

// ResolveUserID はトークンの署名・有効期限・audienceを検証し、subを返す。
// 検証に失敗した場合はErrInvalidCredentialを返す。
func (r *JWTResolver) ResolveUserID(_ context.Context, credential string) (string, error) {
	if credential == "" {
		return "", ErrInvalidCredential
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return r.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: token expired", ErrInvalidCredential)
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if !token.Valid {
		return "", ErrInvalidCredential
	}

	// RegisteredClaims.Valid はexpが無いトークンも受け付けるため、ここで必須にする
	if claims.ExpiresAt == nil {
		return "", fmt.Errorf("%w: missing exp", ErrInvalidCredential)
	}
	if r.audience != "" && !claims.VerifyAudience(r.audience, true) {
		return "", fmt.Errorf("%w: audience mismatch", ErrInvalidCredential)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing sub", ErrInvalidCredential)
	}

	return claims.Subject, nil
}

// compile-time interface check
var _ UserResolver = (*JWTResolver)(nil)
