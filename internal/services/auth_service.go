package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthConfig configures token issuing.
type AuthConfig struct {
	Secret     string
	Issuer     string
	TTL        time.Duration
	CookieName string
}

// AuthService handles registration, login and token checks.
type AuthService struct {
	users      repositories.UserRepository
	jwtSecret  []byte
	issuer     string
	tokenTTL   time.Duration
	cookieName string
	log        *zap.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(users repositories.UserRepository, cfg AuthConfig, log *zap.Logger) *AuthService {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * 24 * time.Hour
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "jwt"
	}
	return &AuthService{
		users:      users,
		jwtSecret:  []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		tokenTTL:   cfg.TTL,
		cookieName: cfg.CookieName,
		log:        log,
	}
}

func (s *AuthService) CookieName() string     { return s.cookieName }
func (s *AuthService) TokenTTL() time.Duration { return s.tokenTTL }

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

// Register creates an active account with the plain user role.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := s.ensureEmailFree(ctx, in.Email, ""); err != nil {
		return nil, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, Internal("Failed to register user", err)
	}
	user := &models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    in.Email,
		Password: hash,
		Phone:    in.Phone,
		Roles:    []string{models.RoleUser},
		IsActive: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, Internal("Failed to register user", err)
	}
	s.log.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// ensureEmailFree rejects an email already used by another account. The
// lookup is case-insensitive; there is no store-level unique index.
func (s *AuthService) ensureEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return nil
	case err != nil:
		return Internal("Failed to check email", err)
	case existing.ID != selfID:
		return Conflict("User already exists")
	}
	return nil
}

// Login checks credentials and returns the user with a signed token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, "", Unauthorized("Invalid email or password")
		}
		return nil, "", Internal("Failed to log in", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", Unauthorized("Invalid email or password")
	}
	if !user.IsActive {
		return nil, "", Forbidden("Account is deactivated")
	}

	token, err := s.IssueToken(user.ID)
	if err != nil {
		return nil, "", Internal("Failed to log in", err)
	}
	return user, token, nil
}

// IssueToken signs an HS256 token carrying the user id.
func (s *AuthService) IssueToken(userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"iss":     s.issuer,
		"exp":     now.Add(s.tokenTTL).Unix(),
		"iat":     now.Unix(),
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses a token and returns the user id it names.
func (s *AuthService) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	if s.issuer != "" && !claims.VerifyIssuer(s.issuer, true) {
		return "", fmt.Errorf("%w: wrong issuer", ErrInvalidToken)
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return "", fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}
	return userID, nil
}

// ResolveUser validates the token and loads the current user record. Claims
// other than the id are never trusted.
func (s *AuthService) ResolveUser(ctx context.Context, tokenString string) (*models.User, error) {
	userID, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("failed to resolve user %s: %w", userID, err)
	}
	if !user.IsActive {
		return nil, ErrUnknownUser
	}
	return user, nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
