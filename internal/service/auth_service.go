package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stemsi/exstem-proctor/internal/config"
)

// Common auth errors.
var (
	ErrTokenInvalid = errors.New("invalid session token")
	ErrTokenExpired = errors.New("session token expired")
)

// TokenType distinguishes the tokens this service issues.
type TokenType string

const (
	TokenTypeExamSession TokenType = "exam_session"
)

// Claims extends JWT standard claims with the session binding.
type Claims struct {
	jwt.RegisteredClaims
	TokenType TokenType `json:"token_type"`
	DeviceID  string    `json:"device_id"`
	StudentID int       `json:"student_id"`
	ExamID    string    `json:"exam_id"`
}

// AuthService issues and validates exam session tokens. A token names the
// device slot it was issued for and expires with the session.
type AuthService struct {
	secret []byte
	now    func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{secret: []byte(cfg.JWTSecret), now: time.Now}
}

// GenerateSessionToken signs a token for deviceID valid until expiresAt.
func (s *AuthService) GenerateSessionToken(deviceID string, studentID int, examID uuid.UUID, expiresAt time.Time) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.Itoa(studentID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		TokenType: TokenTypeExamSession,
		DeviceID:  deviceID,
		StudentID: studentID,
		ExamID:    examID.String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a session token, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != TokenTypeExamSession || claims.DeviceID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
