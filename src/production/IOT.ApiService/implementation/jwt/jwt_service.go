package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"
	api_models "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Models/api"
)

// Service provides JWT operations
type Service struct {
	config api_models.Config
}

// NewService creates a new JWT service
func NewService(config api_models.Config) *Service {
	return &Service{
		config: config,
	}
}

// GenerateToken creates a signed access token for a user
func (s *Service) GenerateToken(userID, role string) (*api_models.TokenPair, error) {
	tokenID := uuid.New().String()
	now := time.Now()
	expiresAt := now.Add(s.config.AccessTokenDuration)

	claims := api_models.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.config.Issuer,
		},
		UserID:  userID,
		Role:    role,
		TokenID: tokenID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.SecretKey))
	if err != nil {
		return nil, err
	}

	return &api_models.TokenPair{
		AccessToken: tokenString,
		TokenID:     tokenID,
		ExpiresAt:   expiresAt.Unix(),
	}, nil
}

// ValidateAccessToken validates an access token and returns the claims
func (s *Service) ValidateAccessToken(tokenString string) (*api_models.AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &api_models.AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.config.SecretKey), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*api_models.AccessClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
