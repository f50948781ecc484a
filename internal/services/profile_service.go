package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/studyroom-service/internal/cache"
	"github.com/SAP-F-2025/studyroom-service/internal/models"
	"github.com/SAP-F-2025/studyroom-service/internal/repositories"
	"github.com/SAP-F-2025/studyroom-service/internal/storage"
	"github.com/SAP-F-2025/studyroom-service/internal/validator"
)

// ProfileImagePath is the URL prefix profile pictures are served from
const ProfileImagePath = "/static/profile_pics/"

type profileService struct {
	db        *gorm.DB
	repo      repositories.Repository
	cache     *cache.CacheManager
	logger    *slog.Logger
	validator *validator.Validator
	avatars   storage.AvatarStore
}

func NewProfileService(deps Dependencies) ProfileService {
	return &profileService{
		db:        deps.DB,
		repo:      deps.Repo,
		cache:     deps.Cache,
		logger:    deps.Logger.With("service", "profile"),
		validator: deps.Validator,
		avatars:   deps.Avatars,
	}
}

func (s *profileService) withTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

func (s *profileService) Get(ctx context.Context, userID uint) (*models.Profile, error) {
	user, err := s.repo.User().GetByID(ctx, nil, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return profileOf(user), nil
}

func (s *profileService) Update(ctx context.Context, userID uint, req *ProfileUpdateRequest, picture *Upload) (*models.Profile, error) {
	if picture != nil {
		req.PictureName = picture.Filename
	}
	if errs := s.validator.GetBusinessValidator().ValidateProfileUpdate(req); errs != nil {
		return nil, errs
	}

	// store the new picture first so a failed write leaves the profile untouched
	var newImage string
	if picture != nil {
		name, err := s.avatars.Save(ctx, picture.Filename, picture.Content)
		if err != nil {
			if errs := pictureValidationError(err); errs != nil {
				return nil, errs
			}
			return nil, fmt.Errorf("failed to store profile picture: %w", err)
		}
		newImage = name
	}

	var (
		updated  *models.User
		oldImage string
	)
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		user, err := s.repo.User().GetByID(ctx, tx, userID)
		if err != nil {
			return err
		}

		taken, err := s.repo.User().ExistsByUsername(ctx, tx, req.Username, userID)
		if err != nil {
			return err
		}
		if taken {
			return ErrUsernameTaken
		}

		user.Username = req.Username
		user.Bio = req.Bio
		if newImage != "" {
			oldImage = user.ImageFile
			user.ImageFile = newImage
		}

		if err := s.repo.User().Update(ctx, tx, user); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		if newImage != "" {
			_ = s.avatars.Delete(ctx, newImage)
		}
		switch {
		case repositories.IsNotFoundError(err):
			return nil, ErrUserNotFound
		case repositories.IsDuplicateError(err):
			return nil, ErrUsernameTaken
		case errors.Is(err, ErrUsernameTaken):
			return nil, err
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	// sessions carry the username through the cached identity
	cache.SafeDelete(ctx, s.cache.User, cache.IdentityKey(userID))

	if oldImage != "" {
		if err := s.avatars.Delete(ctx, oldImage); err != nil {
			s.logger.Warn("Failed to remove previous profile picture", "error", err, "user_id", userID)
		}
	}

	s.logger.Info("Profile updated", "user_id", userID, "picture_changed", newImage != "")
	return profileOf(updated), nil
}

// pictureValidationError turns upload rejections from storage into a form error
func pictureValidationError(err error) validator.ValidationErrors {
	switch {
	case errors.Is(err, storage.ErrImageTooLarge):
		return validator.ValidationErrors{{
			Field:   "picture",
			Message: fmt.Sprintf("Profile picture cannot be larger than %d MB.", storage.MaxAvatarSize>>20),
			Rule:    "max",
		}}
	case errors.Is(err, storage.ErrUnsupportedImage):
		return validator.ValidationErrors{{
			Field:   "picture",
			Message: "Only jpg, jpeg and png images are allowed.",
			Rule:    "image_ext",
		}}
	}
	return nil
}

func profileOf(user *models.User) *models.Profile {
	image := user.ProfileImage()
	return &models.Profile{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Bio:       user.Bio,
		ImageFile: image,
		ImageURL:  ProfileImagePath + image,
		CreatedAt: user.CreatedAt,
	}
}
