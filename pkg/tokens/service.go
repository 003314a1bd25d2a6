package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

const (
	DefaultAccessTTL  = 7 * 24 * time.Hour
	DefaultRefreshTTL = 30 * 24 * time.Hour
)

type Pair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

// Service signs and verifies HS256 tokens. Access and refresh tokens use
// separate secrets and lifetimes; a token of one kind never verifies as the other.
type Service struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Now           func() time.Time
}

func NewService(accessSecret, refreshSecret []byte, accessTTL, refreshTTL time.Duration) *Service {
	if len(refreshSecret) == 0 {
		refreshSecret = accessSecret
	}
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &Service{
		AccessSecret:  accessSecret,
		RefreshSecret: refreshSecret,
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
		Now:           time.Now,
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) sign(id Identity, typ string, secret []byte, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(ttl)
	claims := Claims{
		Email: id.Email,
		Role:  id.Role,
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return token, exp, nil
}

func (s *Service) IssueAccessToken(id Identity) (string, time.Time, error) {
	return s.sign(id, TypeAccess, s.AccessSecret, s.AccessTTL)
}

func (s *Service) IssueRefreshToken(id Identity) (string, time.Time, error) {
	return s.sign(id, TypeRefresh, s.RefreshSecret, s.RefreshTTL)
}

func (s *Service) IssuePair(id Identity) (*Pair, error) {
	access, accessExp, err := s.IssueAccessToken(id)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.IssueRefreshToken(id)
	if err != nil {
		return nil, err
	}
	return &Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

func (s *Service) VerifyAccessToken(token string) (*Claims, error) {
	return s.verify(token, TypeAccess, s.AccessSecret)
}

func (s *Service) VerifyRefreshToken(token string) (*Claims, error) {
	return s.verify(token, TypeRefresh, s.RefreshSecret)
}

func (s *Service) verify(tokenStr, typ string, secret []byte) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrTokenInvalid
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	var claims Claims
	tkn, err := parser.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !tkn.Valid || claims.Type != typ || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return &claims, nil
}
