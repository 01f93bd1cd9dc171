// Package account registers and authenticates users on top of the shop user
// repository. Passwords are stored as bcrypt hashes and sessions are HS256
// JWTs carrying the user id, email and role.
package account

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/medatechnology/goutil/medaerror"
	"golang.org/x/crypto/bcrypt"

	orm "github.com/medatechnology/orderstore"
	"github.com/medatechnology/orderstore/shop"
)

const (
	DefaultRole     = "customer"
	DefaultTokenTTL = 24 * time.Hour
)

var (
	ErrEmailTaken         = &medaerror.MedaError{Message: "user with this email already exists"}
	ErrInvalidCredentials = &medaerror.MedaError{Message: "invalid credentials"}
	ErrInvalidToken       = &medaerror.MedaError{Message: "invalid or expired token"}
	ErrMissingSecret      = &medaerror.MedaError{Message: "token secret is empty"}
)

type Config struct {
	Secret   []byte
	TokenTTL time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// Claims is what a token carries. Subject is the user id.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// UserID parses the subject.
func (c *Claims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// Session is the result of Register and Login.
type Session struct {
	AccessToken string    `json:"access_token"`
	User        shop.User `json:"user"`
}

type Registration struct {
	Email    string
	Password string
	Name     string
	Address  string
	Phone    string
}

type Service struct {
	users  *shop.UserRepository
	config Config
	logger orm.Logger
	now    func() time.Time
}

func NewService(users *shop.UserRepository, config Config, logger orm.Logger) (*Service, error) {
	if len(config.Secret) == 0 {
		return nil, ErrMissingSecret
	}
	if config.TokenTTL <= 0 {
		config.TokenTTL = DefaultTokenTTL
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = orm.NewNoopLogger()
	}
	return &Service{
		users:  users,
		config: config,
		logger: logger.With(orm.String("component", "account")),
		now:    time.Now,
	}, nil
}

// TokenTTL is how long issued tokens stay valid.
func (s *Service) TokenTTL() time.Duration { return s.config.TokenTTL }

// Register creates a customer account and signs it in. The unique email index
// decides races between two registrations of the same address.
func (s *Service) Register(ctx context.Context, r Registration) (Session, error) {
	existing, err := s.users.FindByEmail(ctx, r.Email)
	if err != nil {
		return Session{}, err
	}
	if existing != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrEmailTaken, orm.ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), s.config.BcryptCost)
	if err != nil {
		return Session{}, err
	}
	role := DefaultRole
	passwordHash := string(hash)
	user, err := s.users.Create(ctx, shop.UserPatch{
		Email:        &r.Email,
		PasswordHash: &passwordHash,
		Name:         &r.Name,
		Address:      &r.Address,
		Phone:        &r.Phone,
		Role:         &role,
	})
	if err != nil {
		if orm.IsConflict(err) {
			return Session{}, fmt.Errorf("%w: %w", ErrEmailTaken, err)
		}
		return Session{}, err
	}

	s.logger.Info("user registered", orm.Int64("user_id", user.ID))
	return s.session(user)
}

// Login checks the password. Unknown email and wrong password fail the same
// way.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return Session{}, err
	}
	if user == nil {
		return Session{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.session(*user)
}

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.config.BcryptCost)
	if err != nil {
		return err
	}
	_, err = s.users.UpdatePassword(ctx, userID, string(hash))
	return err
}

// Profile returns the user the token belongs to, or ErrInvalidToken if it no
// longer exists.
func (s *Service) Profile(ctx context.Context, token string) (shop.User, error) {
	claims, err := s.ParseToken(token)
	if err != nil {
		return shop.User{}, err
	}
	id, err := claims.UserID()
	if err != nil {
		return shop.User{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return shop.User{}, err
	}
	if user == nil {
		return shop.User{}, ErrInvalidToken
	}
	return *user, nil
}

// ParseToken verifies the signature and expiry.
func (s *Service) ParseToken(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.config.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) session(user shop.User) (Session, error) {
	now := s.now()
	claims := Claims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.Secret)
	if err != nil {
		return Session{}, err
	}
	return Session{AccessToken: token, User: user}, nil
}

// IsInvalidCredentials reports whether err is a failed login.
func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}
