package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/contactbook/apiserver/internal/store"
	"github.com/contactbook/apiserver/types"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

const (
	invalidCredentialsMessage = "Invalid credentials"
	missingCredentialsMessage = "Username and password are required"
	duplicateUsernameMessage  = "Username already exists"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// NewUser is the input for creating a login user.
type NewUser struct {
	Username string   `validate:"required,min=3,max=180"`
	Password string   `validate:"required,min=6,max=255"`
	Roles    []string `validate:"dive,oneof=ROLE_USER ROLE_EDITOR ROLE_ADMIN"`
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id int64) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, AuthFailure(invalidCredentialsMessage)
		}
		return types.User{}, err
	}
	return user, nil
}

// Authenticate checks a username and password pair.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (types.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return types.User{}, Malformed(missingCredentialsMessage)
	}

	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, AuthFailure(invalidCredentialsMessage)
		}
		return types.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, AuthFailure(invalidCredentialsMessage)
	}
	return user, nil
}

// Create hashes the password and stores a new user.
func (s *UserService) Create(ctx context.Context, input NewUser) (types.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Roles = types.NormalizeRoles(input.Roles)

	if err := validate.Struct(input); err != nil {
		return types.User{}, ValidationFailed(fieldErrorsFrom(err))
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, types.User{
		Username:     input.Username,
		PasswordHash: string(hashed),
		Roles:        input.Roles,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			return types.User{}, Conflict("username", duplicateUsernameMessage)
		}
		return types.User{}, err
	}
	return user, nil
}

func fieldErrorsFrom(err error) FieldErrors {
	errs := FieldErrors{}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		errs.add(MessageKey, err.Error())
		return errs
	}
	for _, fe := range validationErrs {
		field := strings.ToLower(fe.StructField())
		if fe.Param() != "" {
			errs.add(field, fmt.Sprintf("%s failed the %s=%s rule", fe.StructField(), fe.Tag(), fe.Param()))
			continue
		}
		errs.add(field, fmt.Sprintf("%s failed the %s rule", fe.StructField(), fe.Tag()))
	}
	return errs
}
