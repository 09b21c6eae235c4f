package user

import (
	"context"
	"errors"
	"time"

	common_models "go-caseflow/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type UserService interface {
	CreateUser(ctx context.Context, user *common_models.User) error
	GetUser(ctx context.Context, id string) (*common_models.User, error)
	ListUsers(ctx context.Context) ([]common_models.User, error)
	UpdateUser(ctx context.Context, id string, user *common_models.User) error
}

type UserServiceImpl struct {
	Repo UserRepository
}

func NewUserService(repo UserRepository) UserService {
	return &UserServiceImpl{Repo: repo}
}

func (s *UserServiceImpl) CreateUser(ctx context.Context, user *common_models.User) error {
	if user.Username == "" || user.Password == "" {
		return errors.New("username and password are required")
	}

	existing, err := s.Repo.FindByUsername(ctx, user.Username)
	if err != nil {
		return err
	}
	if existing != nil {
		return errors.New("username already taken")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user.ID = primitive.NewObjectID()
	user.Password = string(hashed)
	if user.Status == "" {
		user.Status = "active"
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	return s.Repo.Create(ctx, user)
}

func (s *UserServiceImpl) GetUser(ctx context.Context, id string) (*common_models.User, error) {
	return s.Repo.FindByID(ctx, id)
}

func (s *UserServiceImpl) ListUsers(ctx context.Context) ([]common_models.User, error) {
	return s.Repo.List(ctx)
}

func (s *UserServiceImpl) UpdateUser(ctx context.Context, id string, user *common_models.User) error {
	user.UpdatedAt = time.Now()
	return s.Repo.Update(ctx, id, user)
}
