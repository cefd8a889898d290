package account

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/geocoder89/speakup/internal/domain/user"
)

const MaxAvatarBytes = 2 << 20

var avatarExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// Upload is a file received from the caller. Data may be truncated by the
// transport as long as it keeps more than MaxAvatarBytes when the file is too big.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type ProfileUpdate struct {
	DisplayName *string
	PhoneNumber *string
	Gender      *string
	Location    *string
	Avatar      *Upload
}

// UpdateProfile patches the editable profile fields of current. A new avatar
// is uploaded first; the previous object is removed afterwards and a failure
// there is only logged.
func (s *Service) UpdateProfile(ctx context.Context, current user.User, in ProfileUpdate) (user.View, error) {
	patch := user.Patch{
		DisplayName: user.EditOptional(in.DisplayName),
		PhoneNumber: user.EditOptional(in.PhoneNumber),
		Gender:      user.EditOptional(in.Gender),
		Location:    user.EditOptional(in.Location),
	}

	var uploadedKey string
	if in.Avatar != nil {
		key, url, err := s.uploadAvatar(ctx, *in.Avatar)
		if err != nil {
			return user.View{}, err
		}
		uploadedKey = key
		patch.AvatarPath = &url
	}

	if patch.IsEmpty() {
		return current.View(), nil
	}

	if err := s.store.UpdateByID(ctx, current.ID, patch); err != nil {
		if uploadedKey != "" {
			s.removeAvatar(ctx, uploadedKey)
		}
		if errors.Is(err, user.ErrNotFound) {
			return user.View{}, fail(KindUserNotFound, "user not found")
		}
		return user.View{}, fault(KindInternal, "update profile", err)
	}

	if uploadedKey != "" && current.AvatarPath != nil {
		s.removeAvatar(ctx, avatarKey(*current.AvatarPath))
	}

	updated, err := s.findByID(ctx, current.ID)
	if err != nil {
		return user.View{}, err
	}
	return updated.View(), nil
}

func (s *Service) uploadAvatar(ctx context.Context, up Upload) (key, url string, err error) {
	ext := strings.ToLower(path.Ext(up.Filename))
	if !avatarExtensions[ext] {
		return "", "", fail(KindInvalidInput, "only image files (jpg, jpeg, png, gif) are allowed")
	}
	if len(up.Data) > MaxAvatarBytes {
		return "", "", fail(KindInvalidInput, "file size should be less than 2MB")
	}
	if s.storage == nil {
		return "", "", fail(KindStorageFailure, "object storage is not configured")
	}

	key = uuid.NewString() + ext
	if err := s.storage.Put(ctx, s.settings.AvatarBucket, key, up.Data, up.ContentType); err != nil {
		s.log.ErrorContext(ctx, "avatar upload failed", "key", key, "err", err)
		return "", "", fault(KindStorageFailure, "upload avatar", err)
	}

	return key, s.storage.PublicURL(s.settings.AvatarBucket, key), nil
}

// removeAvatar is best-effort.
func (s *Service) removeAvatar(ctx context.Context, key string) {
	if s.storage == nil || key == "" {
		return
	}
	if err := s.storage.Remove(ctx, s.settings.AvatarBucket, key); err != nil {
		s.log.WarnContext(ctx, "avatar removal failed", "key", key, "err", err)
		return
	}
	s.log.InfoContext(ctx, "avatar removed", "key", key)
}

// avatarKey recovers the object key from a stored public URL.
func avatarKey(avatarURL string) string {
	i := strings.LastIndex(avatarURL, "/")
	return avatarURL[i+1:]
}
