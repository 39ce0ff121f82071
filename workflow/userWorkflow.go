package workflow

import (
	"context"
	"errors"
	"strings"

	"github.com/mmdatafocus/autoservice_backend/config"
	"github.com/mmdatafocus/autoservice_backend/models"
	"github.com/mmdatafocus/autoservice_backend/store"
	"github.com/mmdatafocus/autoservice_backend/utils"
	"github.com/sirupsen/logrus"
)

const invalidCredentials = "invalid email or password"

type UserService struct {
	Store  store.Store
	Logger *logrus.Logger
	// IssueToken signs the session token; it defaults to utils.JwtGenerate.
	IssueToken func(userId string, role string) (string, error)
}

func NewUserService(st store.Store, logger *logrus.Logger) *UserService {
	return &UserService{Store: st, Logger: logger, IssueToken: utils.JwtGenerate}
}

type LoginResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Login checks the password against the stored bcrypt hash. Unknown email and wrong
// password fail the same way.
func (s *UserService) Login(ctx context.Context, input *models.LoginInput) (*LoginResult, error) {
	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}
	user, err := s.Store.GetUserByEmail(ctx, strings.TrimSpace(input.Email))
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, utils.NewAppError(utils.KindUnauthorized, invalidCredentials)
		}
		config.LogErrorContext(ctx, s.Logger, "UserWorkflow", "Login", "get user by email", nil, err)
		return nil, utils.WrapAppError(utils.KindInternal, err, "failed to load user")
	}
	if err := utils.ComparePassword(user.Password, input.Password); err != nil {
		return nil, utils.NewAppError(utils.KindUnauthorized, invalidCredentials)
	}
	token, err := s.IssueToken(user.ID, string(user.Role))
	if err != nil {
		config.LogErrorContext(ctx, s.Logger, "UserWorkflow", "Login", "issue token", user.ID, err)
		return nil, utils.WrapAppError(utils.KindInternal, err, "failed to issue token")
	}
	return &LoginResult{User: user, Token: token}, nil
}

// EnsureAdmin creates the admin user or resets its password and role when it already exists.
func (s *UserService) EnsureAdmin(ctx context.Context, id string, name string, email string, password string) (*models.User, bool, error) {
	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, false, utils.WrapAppError(utils.KindInternal, err, "failed to hash password")
	}
	existing, err := s.Store.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		existing.Password = hashed
		existing.Role = models.UserRoleAdmin
		if name != "" {
			existing.Name = name
		}
		if err := s.Store.UpdateUser(ctx, existing); err != nil {
			return nil, false, utils.WrapAppError(utils.KindInternal, err, "failed to update admin")
		}
		return existing, false, nil
	case errors.Is(err, utils.ErrorRecordNotFound):
		user := &models.User{ID: id, Name: name, Email: models.NormalizeEmail(email), Password: hashed, Role: models.UserRoleAdmin}
		if err := s.Store.CreateUser(ctx, user); err != nil {
			if errors.Is(err, utils.ErrorDuplicateKey) {
				return nil, false, utils.WrapAppError(utils.KindConflict, err, "user %s already exists", email)
			}
			return nil, false, utils.WrapAppError(utils.KindInternal, err, "failed to create admin")
		}
		return user, true, nil
	default:
		return nil, false, utils.WrapAppError(utils.KindInternal, err, "failed to load user")
	}
}
