package services

import (
	"context"
	"errors"
	"slices"
	"strings"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"go.uber.org/zap"
)

var validRoles = []string{models.RoleUser, models.RoleManager, models.RoleAdmin}

// UserService handles profile self-service and user administration.
type UserService struct {
	users repositories.UserRepository
	auth  *AuthService
	log   *zap.Logger
}

func NewUserService(users repositories.UserRepository, auth *AuthService, log *zap.Logger) *UserService {
	return &UserService{users: users, auth: auth, log: log}
}

// ProfileUpdate holds the fields a user may change on their own account.
// Nil fields are left untouched.
type ProfileUpdate struct {
	Name     *string
	Email    *string
	Password *string
	Phone    *string
	Shipping *models.Address
}

func (s *UserService) UpdateProfile(ctx context.Context, user *models.User, in ProfileUpdate) (*models.User, error) {
	updated := *user
	if in.Name != nil {
		updated.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil && models.NormalizeEmail(*in.Email) != user.Email {
		if err := s.auth.ensureEmailFree(ctx, *in.Email, user.ID); err != nil {
			return nil, err
		}
		updated.Email = *in.Email
	}
	if in.Password != nil {
		hash, err := HashPassword(*in.Password)
		if err != nil {
			return nil, Internal("Failed to update profile", err)
		}
		updated.Password = hash
	}
	if in.Phone != nil {
		updated.Phone = *in.Phone
	}
	if in.Shipping != nil {
		updated.Shipping = *in.Shipping
	}
	if err := s.users.Update(ctx, &updated); err != nil {
		return nil, repoError(err, "User not found", "Failed to update profile")
	}
	return &updated, nil
}

func (s *UserService) List(ctx context.Context, page, size int) (*Page[models.User], error) {
	page, size, offset := pageBounds(page, size, 20)
	users, total, err := s.users.List(ctx, offset, size)
	if err != nil {
		return nil, Internal("Failed to list users", err)
	}
	return newPage(users, total, page, size), nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "User not found", "Failed to get user")
	}
	return user, nil
}

// AdminUserUpdate holds the fields an administrator may change.
type AdminUserUpdate struct {
	Name     *string
	Email    *string
	Phone    *string
	Roles    []string
	IsActive *bool
}

// AdminUpdate applies an administrator's changes. Admin accounts cannot be
// deactivated and the last active admin cannot lose the admin role.
func (s *UserService) AdminUpdate(ctx context.Context, id string, in AdminUserUpdate) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updated := *user

	if in.Name != nil {
		updated.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil && models.NormalizeEmail(*in.Email) != user.Email {
		if err := s.auth.ensureEmailFree(ctx, *in.Email, user.ID); err != nil {
			return nil, err
		}
		updated.Email = *in.Email
	}
	if in.Phone != nil {
		updated.Phone = *in.Phone
	}
	if in.Roles != nil {
		roles, err := normalizeRoles(in.Roles)
		if err != nil {
			return nil, err
		}
		updated.Roles = roles
	}
	if in.IsActive != nil {
		if user.IsAdmin() && !*in.IsActive {
			return nil, Forbidden("Admin accounts cannot be deactivated")
		}
		updated.IsActive = *in.IsActive
	}
	if user.IsAdmin() && !updated.IsAdmin() {
		if err := s.ensureAnotherAdmin(ctx); err != nil {
			return nil, err
		}
	}

	if err := s.users.Update(ctx, &updated); err != nil {
		return nil, repoError(err, "User not found", "Failed to update user")
	}
	s.log.Info("user updated by admin", zap.String("user_id", id), zap.Strings("roles", updated.Roles))
	return &updated, nil
}

// Delete deactivates a user, or removes the record when hard is set. Admin
// accounts are never deleted through this path.
func (s *UserService) Delete(ctx context.Context, id string, hard bool) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if user.IsAdmin() {
		return Forbidden("Admin accounts cannot be deleted")
	}
	if hard {
		err = s.users.Delete(ctx, id)
	} else {
		user.IsActive = false
		err = s.users.Update(ctx, user)
	}
	if err != nil {
		return repoError(err, "User not found", "Failed to delete user")
	}
	s.log.Info("user deleted", zap.String("user_id", id), zap.Bool("hard", hard))
	return nil
}

func (s *UserService) ensureAnotherAdmin(ctx context.Context) error {
	n, err := s.users.CountActiveByRole(ctx, models.RoleAdmin)
	if err != nil {
		return Internal("Failed to count admins", err)
	}
	if n <= 1 {
		return Conflict("Cannot remove the last admin")
	}
	return nil
}

// normalizeRoles validates roles and makes sure the base user role is present.
func normalizeRoles(roles []string) ([]string, error) {
	out := []string{models.RoleUser}
	for _, r := range roles {
		r = strings.ToLower(strings.TrimSpace(r))
		if !slices.Contains(validRoles, r) {
			return nil, Validation(map[string]string{"roles": "unknown role " + r})
		}
		if !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// repoError maps repository sentinels to client errors.
func repoError(err error, notFound, internal string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return NotFound(notFound)
	}
	return Internal(internal, err)
}
