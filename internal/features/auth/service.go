package auth

import (
	"context"
	"errors"
	"time"

	"go-caseflow/internal/features/user"
	"go-caseflow/pkg/utils"

	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	Login(ctx context.Context, username, password string) (string, error)
}

type AuthServiceImpl struct {
	UserRepo user.UserRepository
}

func NewAuthService(userRepo user.UserRepository) AuthService {
	return &AuthServiceImpl{UserRepo: userRepo}
}

func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, error) {
	usr, err := s.UserRepo.FindByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if usr == nil {
		return "", errors.New("invalid credentials")
	}
	if usr.Status != "active" {
		return "", errors.New("account is not active")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(usr.Password), []byte(password)); err != nil {
		return "", errors.New("invalid credentials")
	}

	roleIDs := make([]string, 0, len(usr.Roles))
	for _, r := range usr.Roles {
		roleIDs = append(roleIDs, r.Hex())
	}

	now := time.Now()
	usr.LastLogin = &now
	usr.UpdatedAt = now
	_ = s.UserRepo.Update(ctx, usr.ID.Hex(), usr)

	return utils.GenerateToken(usr.ID, roleIDs)
}
