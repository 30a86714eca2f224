package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"posadmin/internal/config"
	"posadmin/internal/dto"
	"posadmin/internal/model"
	"posadmin/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"

	// RevokedPrefix namespaces revoked token ids in the cache.
	RevokedPrefix = "jwt:revoked:"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error)
	// Logout revokes the token id until the token would have expired.
	Logout(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) bool
	// ActiveRole returns the stored role; ok is false for missing or inactive accounts.
	ActiveRole(ctx context.Context, userID uuid.UUID) (role model.Role, ok bool, err error)
}

type authService struct {
	repo   repository.UserRepository
	shifts repository.ShiftRepository
	cache  Cache
	cfg    *config.Config
}

func NewAuthService(repo repository.UserRepository, shifts repository.ShiftRepository, cache Cache, cfg *config.Config) AuthService {
	return &authService{repo: repo, shifts: shifts, cache: cache, cfg: cfg}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.Status {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	resp, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	resp.Redirect, err = s.landing(ctx, user)
	if err != nil {
		return nil, err
	}
	log.Info().Str("user_id", user.ID.String()).Str("role", string(user.Role)).Msg("login")
	return resp, nil
}

// landing picks the first screen after login.
func (s *authService) landing(ctx context.Context, u *model.User) (string, error) {
	if u.Role != model.RoleCashier {
		return "/dashboard", nil
	}
	open, err := s.shifts.FindOpenByUser(ctx, u.ID)
	if err != nil {
		return "", err
	}
	if open == nil {
		return "/shifts/open", nil
	}
	return "/dashboard", nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error) {
	token, err := jwt.Parse(refreshToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if typ, _ := claims["token_type"].(string); typ != TokenRefresh {
		return nil, ErrInvalidToken
	}
	if jti, _ := claims["jti"].(string); jti != "" && s.IsRevoked(ctx, jti) {
		return nil, ErrInvalidToken
	}
	userIDStr, _ := claims["user_id"].(string)
	uid, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.repo.FindByID(ctx, uid)
	if err != nil || !user.Status {
		return nil, ErrInvalidToken
	}

	resp, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	resp.Redirect, err = s.landing(ctx, user)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *authService) ActiveRole(ctx context.Context, userID uuid.UUID) (model.Role, bool, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return user.Role, user.Status, nil
}

func (s *authService) IsRevoked(ctx context.Context, jti string) bool {
	if s.cache == nil {
		return false
	}
	_, err := s.cache.Get(ctx, RevokedPrefix+jti)
	return err == nil
}

func (s *authService) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if s.cache == nil || jti == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.cache.Set(ctx, RevokedPrefix+jti, []byte("1"), ttl)
}

func (s *authService) issue(user *model.User) (*dto.LoginResponse, error) {
	access, err := s.generateToken(user, TokenAccess, time.Duration(s.cfg.JWTExpirationHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	refresh, err := s.generateToken(user, TokenRefresh, time.Duration(s.cfg.JWTRefreshHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    s.cfg.JWTExpirationHours * 3600,
		User: dto.AuthUser{
			ID:        user.ID.String(),
			Name:      user.Name,
			Email:     user.Email,
			Role:      string(user.Role),
			RoleLabel: user.Role.Label(),
		},
	}, nil
}

func (s *authService) generateToken(user *model.User, tokenType string, duration time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id":    user.ID.String(),
		"email":      user.Email,
		"role":       string(user.Role),
		"token_type": tokenType,
		"jti":        uuid.NewString(),
		"exp":        now.Add(duration).Unix(),
		"iat":        now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}
