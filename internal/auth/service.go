package auth

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"nurseconnect.org/internal/facilities"
)

// Service handles worker login and facility login/registration.
type Service struct {
	users      UserStore
	facilities facilities.Store
	tokens     *Tokens
	hashCost   int
	validate   *validator.Validate
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithHashCost overrides the bcrypt work factor used at registration.
func WithHashCost(cost int) ServiceOption {
	return func(s *Service) {
		if cost > 0 {
			s.hashCost = cost
		}
	}
}

// NewService wires credential stores and the token issuer.
func NewService(users UserStore, fac facilities.Store, tokens *Tokens, opts ...ServiceOption) *Service {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	s := &Service{
		users:      users,
		facilities: fac,
		tokens:     tokens,
		hashCost:   DefaultHashCost,
		validate:   v,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tokens exposes the issuer so middleware can verify bearer tokens.
func (s *Service) Tokens() *Tokens { return s.tokens }

// LoginWorker verifies a worker's password and issues a token carrying the role.
func (s *Service) LoginWorker(ctx context.Context, creds Credentials) (User, string, error) {
	creds.Email = strings.ToLower(strings.TrimSpace(creds.Email))
	if err := s.check(creds); err != nil {
		return User{}, "", err
	}
	user, hash, err := s.users.UserByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			burnComparison(creds.Password)
			return User{}, "", ErrInvalidCredentials
		}
		return User{}, "", fmt.Errorf("lookup user: %w", err)
	}
	if err := VerifyPassword(hash, creds.Password); err != nil {
		return User{}, "", ErrInvalidCredentials
	}
	token, _, err := s.tokens.Issue(Principal{Kind: KindWorker, ID: user.ID, Email: user.Email, Role: user.Role})
	if err != nil {
		return User{}, "", err
	}
	return user, token, nil
}

// LoginFacility verifies a facility's password and issues a facility token.
func (s *Service) LoginFacility(ctx context.Context, creds Credentials) (facilities.Facility, string, error) {
	creds.Email = strings.ToLower(strings.TrimSpace(creds.Email))
	if err := s.check(creds); err != nil {
		return facilities.Facility{}, "", err
	}
	fac, hash, err := s.facilities.FacilityByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, facilities.ErrNotFound) {
			burnComparison(creds.Password)
			return facilities.Facility{}, "", ErrInvalidCredentials
		}
		return facilities.Facility{}, "", fmt.Errorf("lookup facility: %w", err)
	}
	if err := VerifyPassword(hash, creds.Password); err != nil {
		return facilities.Facility{}, "", ErrInvalidCredentials
	}
	token, err := s.facilityToken(fac)
	if err != nil {
		return facilities.Facility{}, "", err
	}
	return fac, token, nil
}

// RegisterFacility hashes the password, stores the facility and logs it in.
func (s *Service) RegisterFacility(ctx context.Context, reg facilities.Registration) (facilities.Facility, string, error) {
	reg = reg.Normalize()
	if err := s.check(reg); err != nil {
		return facilities.Facility{}, "", err
	}
	hash, err := HashPassword(reg.Password, s.hashCost)
	if err != nil {
		return facilities.Facility{}, "", fmt.Errorf("hash password: %w", err)
	}
	fac, err := s.facilities.CreateFacility(ctx, reg, hash)
	if err != nil {
		return facilities.Facility{}, "", err
	}
	token, err := s.facilityToken(fac)
	if err != nil {
		return facilities.Facility{}, "", err
	}
	return fac, token, nil
}

func (s *Service) facilityToken(fac facilities.Facility) (string, error) {
	token, _, err := s.tokens.Issue(Principal{Kind: KindFacility, ID: fac.ID, Email: fac.ContactEmail})
	return token, err
}

func (s *Service) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "email":
			msgs = append(msgs, fe.Field()+" must be a valid email")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fe.Field()+" is invalid")
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(msgs, "; "))
}
