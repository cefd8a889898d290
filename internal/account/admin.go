package account

import (
	"context"
	"errors"
	"strings"

	"github.com/geocoder89/speakup/internal/domain/user"
)

// RequireAdmin is the authorization guard for administrative operations.
func RequireAdmin(u user.User) error {
	if !u.IsAdmin {
		return fail(KindPermissionDenied, "admin privileges required")
	}
	return nil
}

// RequireAdmin is exposed on Service as well so handlers can depend on one value.
func (s *Service) RequireAdmin(u user.User) error {
	return RequireAdmin(u)
}

type AdminCreateInput struct {
	Email    string
	Password string
	Profile  user.Profile
	IsAdmin  bool
}

// AdminUpdateInput lists the fields an admin may change. Status is absent on
// purpose: activation only happens through email confirmation.
type AdminUpdateInput struct {
	Email       *string
	DisplayName *string
	PhoneNumber *string
	Gender      *string
	Location    *string
	IsAdmin     *bool
}

// AdminCreateUser creates an already active account. No email is sent.
func (s *Service) AdminCreateUser(ctx context.Context, actor user.User, in AdminCreateInput) (user.View, error) {
	if err := RequireAdmin(actor); err != nil {
		return user.View{}, err
	}

	email := strings.TrimSpace(in.Email)
	if email == "" {
		return user.View{}, fail(KindInvalidInput, "email is required")
	}

	taken, err := s.emailTaken(ctx, email)
	if err != nil {
		return user.View{}, err
	}
	if taken {
		return user.View{}, fail(KindEmailAlreadyRegistered, "email already registered")
	}

	if err := s.checkPassword(in.Password); err != nil {
		return user.View{}, err
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return user.View{}, err
	}

	created, err := s.store.Create(ctx, user.User{
		Email:          email,
		HashedPassword: hash,
		DisplayName:    user.NormalizeOptional(in.Profile.DisplayName),
		PhoneNumber:    user.NormalizeOptional(in.Profile.PhoneNumber),
		Gender:         user.NormalizeOptional(in.Profile.Gender),
		Location:       user.NormalizeOptional(in.Profile.Location),
		AvatarPath:     user.NormalizeOptional(in.Profile.AvatarPath),
		IsAdmin:        in.IsAdmin,
		Status:         user.StatusActive,
		CreatedAt:      s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return user.View{}, fail(KindEmailAlreadyRegistered, "email already registered")
		}
		return user.View{}, fault(KindInternal, "create user", err)
	}

	s.log.InfoContext(ctx, "user created by admin", "user_id", created.ID, "admin_id", actor.ID)

	return created.View(), nil
}

func (s *Service) AdminListUsers(ctx context.Context, actor user.User) ([]user.View, error) {
	if err := RequireAdmin(actor); err != nil {
		return nil, err
	}

	users, err := s.store.List(ctx)
	if err != nil {
		return nil, fault(KindInternal, "list users", err)
	}

	views := make([]user.View, 0, len(users))
	for _, u := range users {
		views = append(views, u.View())
	}
	return views, nil
}

func (s *Service) AdminUpdateUser(ctx context.Context, actor user.User, id string, in AdminUpdateInput) (user.View, error) {
	if err := RequireAdmin(actor); err != nil {
		return user.View{}, err
	}

	target, err := s.findByID(ctx, id)
	if err != nil {
		return user.View{}, err
	}

	patch := user.Patch{
		DisplayName: user.EditOptional(in.DisplayName),
		PhoneNumber: user.EditOptional(in.PhoneNumber),
		Gender:      user.EditOptional(in.Gender),
		Location:    user.EditOptional(in.Location),
		IsAdmin:     in.IsAdmin,
	}

	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email != "" && email != target.Email {
			taken, err := s.emailTaken(ctx, email)
			if err != nil {
				return user.View{}, err
			}
			if taken {
				return user.View{}, fail(KindEmailAlreadyRegistered, "email already registered")
			}
			patch.Email = &email
		}
	}

	if patch.IsEmpty() {
		return target.View(), nil
	}

	if err := s.store.UpdateByID(ctx, target.ID, patch); err != nil {
		switch {
		case errors.Is(err, user.ErrEmailTaken):
			return user.View{}, fail(KindEmailAlreadyRegistered, "email already registered")
		case errors.Is(err, user.ErrNotFound):
			return user.View{}, fail(KindUserNotFound, "user not found")
		}
		return user.View{}, fault(KindInternal, "update user", err)
	}

	s.log.InfoContext(ctx, "user updated by admin", "user_id", target.ID, "admin_id", actor.ID)

	updated, err := s.findByID(ctx, target.ID)
	if err != nil {
		return user.View{}, err
	}
	return updated.View(), nil
}

// AdminDeleteUser removes an account other than the actor's own. Avatar
// removal is best-effort; the deletion itself is what must succeed.
func (s *Service) AdminDeleteUser(ctx context.Context, actor user.User, id string) (Message, error) {
	if err := RequireAdmin(actor); err != nil {
		return Message{}, err
	}

	target, err := s.findByID(ctx, id)
	if err != nil {
		return Message{}, err
	}

	if target.ID == actor.ID {
		return Message{}, fail(KindSelfDeleteForbidden, "cannot delete yourself")
	}

	if target.AvatarPath != nil {
		s.removeAvatar(ctx, avatarKey(*target.AvatarPath))
	}

	if err := s.store.Delete(ctx, target.ID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Message{}, fail(KindUserNotFound, "user not found")
		}
		return Message{}, fault(KindInternal, "delete user", err)
	}

	s.log.InfoContext(ctx, "user deleted by admin", "user_id", target.ID, "admin_id", actor.ID)

	return Message{Message: "User deleted successfully"}, nil
}
