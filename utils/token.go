package utils

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
)

type JwtCustomClaim struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	jwt.StandardClaims
}

func getJwtSecret() []byte {
	secret := os.Getenv("API_SECRET")
	if secret == "" {
		return []byte("autoservice-secret")
	}
	return []byte(secret)
}

func tokenLifespan() time.Duration {
	hours, err := strconv.Atoi(strings.TrimSpace(os.Getenv("TOKEN_HOUR_LIFESPAN")))
	if err != nil || hours <= 0 {
		hours = 24
	}
	return time.Hour * time.Duration(hours)
}

func JwtGenerate(userID string, role string) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &JwtCustomClaim{
		ID:   userID,
		Role: role,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(tokenLifespan()).Unix(),
			IssuedAt:  now.Unix(),
		},
	})

	return t.SignedString(getJwtSecret())
}

func JwtValidate(token string) (*JwtCustomClaim, error) {
	parsed, err := jwt.ParseWithClaims(token, &JwtCustomClaim{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("there's a problem with the signing method")
		}
		return getJwtSecret(), nil
	})
	if err != nil {
		return nil, err
	}
	claim, ok := parsed.Claims.(*JwtCustomClaim)
	if !ok || !parsed.Valid || claim.ID == "" {
		return nil, errors.New("invalid token")
	}
	return claim, nil
}
