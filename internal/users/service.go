package users

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // register the webp decoder with image.Decode

	"resume-builder/internal/notify"
	"resume-builder/internal/shared/auth"
	"resume-builder/internal/shared/storage/object"
	"resume-builder/internal/shared/telemetry"
	"resume-builder/internal/shared/util"
	"resume-builder/internal/shared/validation"
)

const (
	AvatarSize        = 400
	MaxAvatarBytes    = 5 << 20
	MinPasswordLen    = 6
	avatarJPEGQuality = 85
)

var (
	ErrNothingToUpdate = errors.New("nothing to update")
	ErrSocialAccount   = errors.New("account uses a social login provider")
	ErrWrongPassword   = errors.New("current password is incorrect")
	ErrInvalidImage    = errors.New("invalid image")
)

// ResumeRemover deletes everything a user owns in the resume store.
type ResumeRemover interface {
	DeleteAllForUser(ctx context.Context, userID string) error
}

type Service struct {
	Repo    Repo
	Store   object.ObjectStore
	Notify  notify.Publisher
	Resumes ResumeRemover
	Now     func() time.Time
}

func NewService(repo Repo, store object.ObjectStore, pub notify.Publisher) *Service {
	if pub == nil {
		pub = notify.Discard{}
	}
	return &Service{Repo: repo, Store: store, Notify: pub, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, userID)
}

// IsAdmin reads the admin flag from storage. Unknown users are not admins.
func (s *Service) IsAdmin(ctx context.Context, userID string) (bool, error) {
	user, err := s.GetByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return user.IsAdmin, nil
}

// ProfileUpdate carries optional changes; nil means keep.
type ProfileUpdate struct {
	Name  *string `json:"name" validate:"omitempty,max=50"`
	Email *string `json:"email" validate:"omitempty,email"`
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (User, error) {
	in.Name = trimmedOrNil(in.Name, strings.TrimSpace)
	in.Email = trimmedOrNil(in.Email, NormalizeEmail)
	if in.Name == nil && in.Email == nil {
		return User{}, ErrNothingToUpdate
	}
	if err := validation.Struct(in); err != nil {
		return User{}, err
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return User{}, err
	}
	var fields []string
	if in.Name != nil && *in.Name != user.Name {
		user.Name = *in.Name
		fields = append(fields, "name")
	}
	if in.Email != nil && *in.Email != NormalizeEmail(user.Email) {
		user.Email = *in.Email
		fields = append(fields, "email")
	}
	if len(fields) == 0 {
		return user, nil
	}
	user.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, user); err != nil {
		return User{}, err
	}
	s.publish(notify.KindProfileUpdated, user, fields)
	return user, nil
}

// ChangePassword verifies the current password and stores a new hash.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) (User, error) {
	if len(next) < MinPasswordLen {
		return User{}, validation.New("newPassword", fmt.Sprintf("must be at least %d characters", MinPasswordLen))
	}
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return User{}, err
	}
	if user.AuthProvider != ProviderLocal {
		return User{}, ErrSocialAccount
	}
	if !auth.CheckPassword(user.PasswordHash, current) {
		return User{}, ErrWrongPassword
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return User{}, err
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, user); err != nil {
		return User{}, err
	}
	s.publish(notify.KindPasswordChanged, user, []string{"password"})
	return user, nil
}

// SetAvatar center-crops the image to a square JPEG and stores it.
func (s *Service) SetAvatar(ctx context.Context, userID string, r io.Reader) (User, error) {
	if s.Store == nil {
		return User{}, errors.New("object store not configured")
	}
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return User{}, err
	}
	img, err := imaging.Decode(io.LimitReader(r, MaxAvatarBytes+1), imaging.AutoOrientation(true))
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	square := imaging.Fill(img, AvatarSize, AvatarSize, imaging.Center, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, square, imaging.JPEG, imaging.JPEGQuality(avatarJPEGQuality)); err != nil {
		return User{}, fmt.Errorf("encode avatar: %w", err)
	}

	key := AvatarKey(userID)
	if _, err := s.Store.SaveWithKey(ctx, key, "image/jpeg", &buf); err != nil {
		return User{}, fmt.Errorf("store avatar: %w", err)
	}
	user.AvatarKey = key
	user.ProfilePicture = AvatarURL(userID)
	user.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, user); err != nil {
		return User{}, err
	}
	s.publish(notify.KindProfileUpdated, user, []string{"profilePicture"})
	return user, nil
}

// OpenAvatar streams the stored avatar.
func (s *Service) OpenAvatar(ctx context.Context, userID string) (io.ReadCloser, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.AvatarKey == "" || s.Store == nil {
		return nil, ErrNotFound
	}
	rc, err := s.Store.Open(ctx, user.AvatarKey)
	if errors.Is(err, object.ErrNotFound) {
		return nil, ErrNotFound
	}
	return rc, err
}

// DeleteAccount removes the user's resumes and files, then the user.
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if s.Resumes != nil {
		if err := s.Resumes.DeleteAllForUser(ctx, userID); err != nil {
			return fmt.Errorf("delete resumes: %w", err)
		}
	}
	if user.AvatarKey != "" && s.Store != nil {
		if err := s.Store.Delete(ctx, user.AvatarKey); err != nil {
			telemetry.Warn("users.avatar_delete_failed", map[string]any{"user_id": userID, "error": err.Error()})
		}
	}
	return s.Repo.Delete(ctx, userID)
}

// SetAdmin grants or revokes admin rights by e-mail.
func (s *Service) SetAdmin(ctx context.Context, email string, admin bool) (User, error) {
	user, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if user.IsAdmin == admin {
		return user, nil
	}
	user.IsAdmin = admin
	user.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *Service) publish(kind notify.Kind, user User, fields []string) {
	if s.Notify == nil {
		return
	}
	s.Notify.Publish(notify.Event{
		Kind:      kind,
		UserID:    user.ID,
		UserName:  user.Name,
		UserEmail: user.Email,
		Fields:    fields,
	})
}

func trimmedOrNil(v *string, clean func(string) string) *string {
	if v == nil {
		return nil
	}
	out := clean(*v)
	if out == "" {
		return nil
	}
	return &out
}

func AvatarKey(userID string) string {
	return "avatars/" + util.HashUserKey(userID) + ".jpg"
}

func AvatarURL(userID string) string {
	return "/api/users/" + userID + "/avatar"
}
