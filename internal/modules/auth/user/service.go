package user

import (
	"context"
	"strings"
	"time"

	"github.com/himlearning/storyhub/internal/models"
	"github.com/himlearning/storyhub/internal/modules/storage/media"
	"github.com/himlearning/storyhub/internal/pkg/apperr"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	store   Store
	stories StoryReader
	media   media.Provider
	limits  media.Limits
	log     *zap.Logger
}

func NewService(store Store, stories StoryReader, provider media.Provider, limits media.Limits, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, stories: stories, media: provider, limits: limits, log: log.Named("user")}
}

// ResolveIdentity returns the viewer for a token subject.
func (s *Service) ResolveIdentity(ctx context.Context, id primitive.ObjectID) (models.Viewer, error) {
	u, err := s.store.FindByID(ctx, id)
	if err != nil {
		return models.Anonymous(), err
	}
	if u == nil {
		return models.Anonymous(), apperr.Unauthenticated("Your account no longer exists.")
	}
	return u.Viewer(), nil
}

// Profile returns the signed-in account.
func (s *Service) Profile(ctx context.Context, viewer models.Viewer) (*models.User, error) {
	if !viewer.IsAuthenticated() {
		return nil, apperr.Unauthenticated("Please sign in first.")
	}
	u, err := s.store.FindByID(ctx, viewer.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if u == nil {
		return nil, apperr.NotFound("User not found")
	}
	return u, nil
}

// EditProfile changes the username and, when a photo is uploaded, the avatar.
func (s *Service) EditProfile(ctx context.Context, viewer models.Viewer, username string, photo *media.Upload) (*models.User, error) {
	u, err := s.Profile(ctx, viewer)
	if err != nil {
		return nil, err
	}
	if username = strings.TrimSpace(username); username != "" {
		u.Username = username
	}

	oldPhotoID := u.PhotoID
	var asset *media.Asset
	if photo != nil {
		if err := s.limits.ValidateImage(photo); err != nil {
			return nil, err
		}
		if s.media == nil {
			return nil, apperr.UploadRejected("media uploads are disabled")
		}
		photo.Prefix = "user_" + u.ID.Hex()
		if asset, err = s.media.Upload(ctx, media.FolderUsers, photo); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "photo upload failed", err)
		}
		u.Photo, u.PhotoID = asset.URL, asset.ID
	}

	if err := s.store.UpdateProfile(ctx, u.ID, u.Username, u.Photo, u.PhotoID); err != nil {
		if asset != nil {
			s.release(asset.ID)
		}
		return nil, apperr.Internal(err)
	}
	if asset != nil && oldPhotoID != "" {
		s.release(oldPhotoID)
	}
	return u, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, viewer models.Viewer, oldPassword, newPassword string) error {
	u, err := s.Profile(ctx, viewer)
	if err != nil {
		return err
	}
	if len(newPassword) < minPasswordLen {
		return apperr.Validation("New password must be at least 6 characters")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(oldPassword)) != nil {
		return apperr.Validation("Old password is incorrect")
	}
	if oldPassword == newPassword {
		return apperr.Validation("Please enter a password different from the old one")
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := s.store.SetPassword(ctx, u.ID, hash); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// ToggleReadList adds a readable story to the viewer's read list, or removes
// it when already present. added reports the resulting membership.
func (s *Service) ToggleReadList(ctx context.Context, viewer models.Viewer, slug string) (u *models.User, added bool, err error) {
	if !viewer.IsAuthenticated() {
		return nil, false, apperr.Unauthenticated("Please sign in first.")
	}
	st, err := s.stories.Readable(ctx, viewer, slug)
	if err != nil {
		return nil, false, err
	}
	u, err = s.store.ToggleReadList(ctx, viewer.ID, st.ID)
	if err != nil {
		return nil, false, apperr.Internal(err)
	}
	if u == nil {
		return nil, false, apperr.NotFound("User not found")
	}
	return u, models.ContainsID(u.ReadList, st.ID), nil
}

// ReadList returns the bookmarked stories the viewer can still read.
func (s *Service) ReadList(ctx context.Context, viewer models.Viewer) ([]models.Story, error) {
	u, err := s.Profile(ctx, viewer)
	if err != nil {
		return nil, err
	}
	return s.stories.ReadableByIDs(ctx, viewer, u.ReadList)
}

func (s *Service) release(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.media.Delete(ctx, id); err != nil {
		s.log.Warn("release photo", zap.String("media", id), zap.Error(err))
	}
}

// HashPassword bcrypt-hashes a plain password.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
