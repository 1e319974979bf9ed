package auth

import (
	"alumconnect/internal/models"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/c-pro/geche"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultTokenExpiry = time.Hour
	tokenIssuer        = "alumconnect"
)

// Credentials is a directory profile together with its password hash.
// Profiles seeded by an administrator have an empty hash and cannot log in.
type Credentials struct {
	models.Profile
	PasswordHash string
}

// Store persists credentials. CreateProfile fails with models.ErrUserExists when
// the email is already taken.
type Store interface {
	CreateProfile(ctx context.Context, credentials Credentials) error
	ListCredentials(ctx context.Context) ([]Credentials, error)
}

type SignupRequest struct {
	Name     string      `json:"name" validate:"required"`
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,min=8,max=72"`
	Role     models.Role `json:"role" validate:"omitempty,oneof=student alumni admin"`
	City     string      `json:"city"`
	Country  string      `json:"country"`
	GradYear int         `json:"gradYear" validate:"omitempty,gte=1900,lte=2200"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type Session struct {
	User  models.Profile `json:"user"`
	Token string         `json:"token"`
}

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type Config struct {
	Secret      string
	TokenExpiry time.Duration
}

func (c *Config) Validate() error {
	if c.Secret == "" {
		return errors.New("secret is required")
	}
	if c.TokenExpiry == 0 {
		c.TokenExpiry = DefaultTokenExpiry
	}
	return nil
}

type AuthService struct {
	Config
	store Store
	// keyed by lower-cased email
	users *geche.Locker[string, *Credentials]
	now   func() time.Time
}

func NewAuthService(ctx context.Context, config Config, store Store) (*AuthService, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	as := &AuthService{
		Config: config,
		store:  store,
		users:  geche.NewLocker[string, *Credentials](geche.NewMapCache[string, *Credentials]()),
		now:    time.Now,
	}

	existing, err := store.ListCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	tx := as.users.Lock()
	defer tx.Unlock()
	for i := range existing {
		c := existing[i]
		tx.Set(normalizeEmail(c.Email), &c)
	}

	return as, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates a profile with a password and returns a fresh session.
func (as *AuthService) Signup(ctx context.Context, req SignupRequest) (Session, error) {
	email := normalizeEmail(req.Email)

	tx := as.users.Lock()
	defer tx.Unlock()
	if _, err := tx.Get(email); err == nil {
		return Session{}, models.ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, fmt.Errorf("failed to hash password: %w", err)
	}

	role := req.Role
	if role == "" {
		role = models.RoleStudent
	}

	creds := &Credentials{
		Profile: models.Profile{
			ID:        uuid.NewString(),
			Name:      strings.TrimSpace(req.Name),
			Email:     email,
			City:      req.City,
			Country:   req.Country,
			Role:      role,
			GradYear:  req.GradYear,
			CreatedAt: as.now().UTC(),
		},
		PasswordHash: string(hash),
	}

	if err := as.store.CreateProfile(ctx, *creds); err != nil {
		if errors.Is(err, models.ErrUserExists) {
			return Session{}, err
		}
		return Session{}, fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}
	tx.Set(email, creds)

	return as.newSession(creds.Profile)
}

// AddProfile stores a directory profile without a password, such as one seeded
// by an administrator. The profile cannot log in.
func (as *AuthService) AddProfile(ctx context.Context, profile models.Profile) (models.Profile, error) {
	profile.Email = normalizeEmail(profile.Email)
	profile.Name = strings.TrimSpace(profile.Name)
	if profile.Name == "" {
		return models.Profile{}, fmt.Errorf("%w: name is required", models.ErrValidation)
	}
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	if profile.Role == "" {
		profile.Role = models.RoleStudent
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = as.now().UTC()
	}

	tx := as.users.Lock()
	defer tx.Unlock()
	if profile.Email != "" {
		if _, err := tx.Get(profile.Email); err == nil {
			return models.Profile{}, models.ErrUserExists
		}
	}

	creds := &Credentials{Profile: profile}
	if err := as.store.CreateProfile(ctx, *creds); err != nil {
		if errors.Is(err, models.ErrUserExists) {
			return models.Profile{}, err
		}
		return models.Profile{}, fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}
	if profile.Email != "" {
		tx.Set(profile.Email, creds)
	}

	return profile, nil
}

func (as *AuthService) Login(req LoginRequest) (Session, error) {
	tx := as.users.Lock()
	user, err := tx.Get(normalizeEmail(req.Email))
	tx.Unlock()
	if err != nil {
		return Session{}, fmt.Errorf("%w: user not found", models.ErrNotFound)
	}

	if user.PasswordHash == "" {
		return Session{}, models.ErrUnauthorized
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return Session{}, models.ErrUnauthorized
	}

	return as.newSession(user.Profile)
}

func (as *AuthService) newSession(profile models.Profile) (Session, error) {
	token, err := as.generateToken(profile)
	if err != nil {
		slog.Error("token generation failed", "user_id", profile.ID, "error", err)
		return Session{}, err
	}
	return Session{User: profile, Token: token}, nil
}

func (as *AuthService) generateToken(profile models.Profile) (string, error) {
	now := as.now()
	claims := &Claims{
		UserID: profile.ID,
		Email:  profile.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profile.ID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.TokenExpiry)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(as.Secret))
}

// GetUserID validates a session token and returns the user it was issued to.
func (as *AuthService) GetUserID(token string) (string, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(as.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(as.now),
	)
	if err != nil || !parsed.Valid {
		return "", models.ErrUnauthorized
	}
	return claims.UserID, nil
}
