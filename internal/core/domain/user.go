package domain

import (
	"net/mail"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/hpos/callcenter-backend/internal/core/errors"
)

const (
	MinPasswordLength = 8
	MaxNameLength     = 255
	MaxEmailLength    = 255
)

// User is a console operator: an agent, manager, cashier, kitchen display
// or driver account scoped to a branch.
type User struct {
	ID             uuid.UUID
	BranchID       string
	Name           string
	Email          string
	Role           Role
	HashedPassword string
	IsActive       bool
	LastLoginAt    *time.Time
	CreatedAt      time.Time
}

// UserRegistrationParams holds parameters for user registration.
type UserRegistrationParams struct {
	Name     string
	Email    string
	Password string
	Role     Role
	BranchID string
}

// Validate validates user registration parameters.
func (p *UserRegistrationParams) Validate() error {
	errs := apperrors.NewValidationErrors()

	if p.Name == "" {
		errs.Add("name", "Name is required")
	} else if len(p.Name) > MaxNameLength {
		errs.Add("name", "Name must be 255 characters or less")
	}

	if p.Email == "" {
		errs.Add("email", "Email is required")
	} else if len(p.Email) > MaxEmailLength {
		errs.Add("email", "Email must be 255 characters or less")
	} else if !isValidEmail(p.Email) {
		errs.Add("email", "Invalid email format")
	}

	if len(p.Password) < MinPasswordLength {
		errs.Add("password", "Password must be at least 8 characters long")
	}

	if !p.Role.IsValid() {
		errs.Add("role", "Unknown role")
	}

	if p.BranchID == "" {
		errs.Add("branchId", "Branch ID is required")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// isValidEmail validates email format.
func isValidEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

// CheckPassword verifies if the provided password matches the stored hash.
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(password))
	return err == nil
}

// HashPassword hashes a password using bcrypt.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", apperrors.ErrPasswordTooWeak
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// NewUser creates a new user with validated parameters.
func NewUser(params UserRegistrationParams) (*User, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	hashedPassword, err := HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	return &User{
		ID:             uuid.New(),
		BranchID:       params.BranchID,
		Name:           params.Name,
		Email:          params.Email,
		Role:           params.Role,
		HashedPassword: hashedPassword,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
	}, nil
}
