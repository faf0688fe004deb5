package users

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/fullpos/poscloud/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type CreateUserOptions struct {
	CompanyID uint
	Username  string
	Email     string
	Password  string
	Role      string
}

type UserService struct {
	userRepo UserRepository
}

func (s *UserService) GetUserByID(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.userRepo.First(ctx, "id = ?", userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *UserService) GetUserByUsernameOrEmail(ctx context.Context, identifier string) (*model.User, error) {
	var (
		user *model.User
		err  error
	)
	if _, err = mail.ParseAddress(identifier); err == nil {
		user, err = s.userRepo.First(ctx, "email = ?", identifier)
	} else {
		user, err = s.userRepo.First(ctx, "username = ?", identifier)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func validRole(role string) bool {
	switch role {
	case model.RoleOwner, model.RoleAdmin, model.RoleCashier:
		return true
	}
	return false
}

func (s *UserService) CreateUser(ctx context.Context, opts CreateUserOptions) (*model.User, error) {
	role := opts.Role
	if role == "" {
		role = model.RoleCashier
	}
	if !validRole(role) {
		return nil, ErrInvalidRole
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := model.User{
		CompanyID: opts.CompanyID,
		Username:  strings.TrimSpace(opts.Username),
		Email:     strings.TrimSpace(opts.Email),
		Password:  string(passwordHash),
		Role:      role,
	}
	if err := s.userRepo.Create(ctx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return &user, nil
}

// Authenticate checks the password of an owner-app account. Unknown users and
// wrong passwords are indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, identifier string, password string) (*model.User, error) {
	user, err := s.GetUserByUsernameOrEmail(ctx, strings.TrimSpace(identifier))
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if user.Disabled {
		return nil, ErrUserDisabled
	}
	return user, nil
}

func (s *UserService) UpdatePassword(ctx context.Context, userID uint, newPassword string) error {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	affected, err := s.userRepo.Updates(ctx, userID, map[string]interface{}{"password": string(passwordHash)})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *UserService) SetDisabled(ctx context.Context, userID uint, disabled bool) error {
	affected, err := s.userRepo.Updates(ctx, userID, map[string]interface{}{"disabled": disabled})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func NewUserService(userRepo UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}
