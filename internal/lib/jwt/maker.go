// Package jwt реализует выпуск и разбор сессионных JWT-токенов,
// которые API выдаёт после входа пользователя.
//
// Токен подписывается HMAC-SHA256, в поле subject хранится идентификатор пользователя.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken возвращается для просроченных, повреждённых или чужих токенов.
var ErrInvalidToken = errors.New("invalid token")

// Maker описывает интерфейс для выпуска и проверки токенов.
type Maker interface {
	// GenerateToken выпускает токен для пользователя userID.
	GenerateToken(userID string) (string, error)
	// ParseToken проверяет подпись и срок действия и возвращает userID.
	ParseToken(tokenStr string) (string, error)
}

// MakerImpl реализует Maker с использованием секретного ключа и TTL.
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration
}

// NewJWTMaker создаёт MakerImpl на основе секретного ключа и времени жизни токена.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
	}
}

// GenerateToken создаёт токен с subject = userID.
func (j *MakerImpl) GenerateToken(userID string) (string, error) {
	const op = "jwt.GenerateToken"
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(j.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return signed, nil
}

// ParseToken разбирает токен и возвращает идентификатор пользователя.
func (j *MakerImpl) ParseToken(tokenStr string) (string, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(j.secretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%s: %w: %v", op, ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	return claims.Subject, nil
}
