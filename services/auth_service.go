package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	config "github.com/anjiri1684/teacherin/configs"
	"github.com/anjiri1684/teacherin/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

var errInvalidCredentials = Unauthenticated("invalid email or password")

type AuthService struct {
	db  *gorm.DB
	cfg config.JWTConfig
	log *zerolog.Logger
}

func NewAuthService(db *gorm.DB, cfg config.JWTConfig, log *zerolog.Logger) *AuthService {
	return &AuthService{db: db, cfg: cfg, log: log}
}

type RegisterInput struct {
	FullName string
	Email    string
	Password string
}

// Register creates a STUDENT account. Onboarding may turn it into a
// teacher later.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || strings.TrimSpace(in.FullName) == "" {
		return nil, Validation("full name and email are required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, Validation("password must be at least %d characters", minPasswordLength)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		FullName: strings.TrimSpace(in.FullName),
		Email:    email,
		Password: string(hashed),
		Role:     models.RoleStudent,
		IsActive: true,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, dbErr(err, "create user", nil, ErrEmailTaken)
	}

	s.log.Info().Str("user_id", user.ID.String()).Msg("user registered")
	return &user, nil
}

type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		return nil, dbErr(err, "load user", errInvalidCredentials, nil)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}
	if !user.IsActive {
		return nil, Forbidden("account is deactivated")
	}

	token, exp, err := s.IssueToken(&user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: exp, User: &user}, nil
}

// IssueToken signs an HS256 token carrying user_id, role and exp.
func (s *AuthService) IssueToken(user *models.User) (string, time.Time, error) {
	exp := time.Now().Add(time.Duration(s.cfg.TTLHours) * time.Hour)
	claims := jwt.MapClaims{
		"user_id": user.ID.String(),
		"role":    user.Role,
		"exp":     exp.Unix(),
	}
	t, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return t, exp, nil
}

// ResolvePrincipal turns a verified token subject into the request
// principal. Role and profile come from the store, not from the token,
// so onboarding and deactivation take effect immediately.
func (s *AuthService) ResolvePrincipal(ctx context.Context, userID uuid.UUID) (Principal, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return Principal{}, dbErr(err, "load user", Unauthenticated("account no longer exists"), nil)
	}
	if !user.IsActive {
		return Principal{}, Unauthenticated("account is deactivated")
	}

	p := Principal{
		UserID:    user.ID,
		Role:      user.Role,
		ProfileID: user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
	}
	if user.Role == models.RoleTeacher {
		teacherID, err := firstID(s.db.WithContext(ctx).Model(&models.Teacher{}).Where("user_id = ?", user.ID), "id")
		if err != nil {
			return Principal{}, fmt.Errorf("resolve teacher profile: %w", err)
		}
		p.ProfileID = teacherID
	}
	return p, nil
}

func (s *AuthService) Me(ctx context.Context, p Principal) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", p.UserID).Error; err != nil {
		return nil, dbErr(err, "load user", ErrUserNotFound, nil)
	}
	return &user, nil
}
