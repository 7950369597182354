package app

import (
	"context"
	"strings"

	"rubik/internal/errors"
	"rubik/internal/forms"
	"rubik/internal/media"
	"rubik/models"
	"rubik/ports"

	"go.uber.org/zap"
)

// MaxPictureBytes caps a profile picture upload
const MaxPictureBytes = 5 << 20

// AccountForm is the account half of the profile editor
type AccountForm struct {
	Username  string `form:"username" binding:"required,max=150,username"`
	Email     string `form:"email" binding:"required,max=254,mailaddr"`
	FirstName string `form:"first_name" binding:"max=150"`
	LastName  string `form:"last_name" binding:"max=150"`
}

// Upload is a submitted file
type Upload struct {
	Filename string
	Data     []byte
}

// ProfileForm is the profile half of the profile editor
type ProfileForm struct {
	Bio     string `form:"bio" binding:"max=5000"`
	Picture *Upload
}

// ProfileView is what the editor shows
type ProfileView struct {
	Account *models.Account
	Profile *models.Profile
}

// ProfileService lets an account edit itself
type ProfileService struct {
	store  ports.IdentityStore
	blobs  media.BlobStore
	logger *zap.Logger
}

// NewProfileService creates a profile service writing pictures to blobs
func NewProfileService(store ports.IdentityStore, blobs media.BlobStore, logger *zap.Logger) *ProfileService {
	return &ProfileService{store: store, blobs: blobs, logger: logger}
}

// Load returns the account with its profile, healing a missing profile
func (s *ProfileService) Load(ctx context.Context, accountID int64) (*ProfileView, error) {
	account, err := s.store.Accounts().GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	profile, err := s.store.Profiles().Ensure(ctx, accountID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load profile")
	}
	return &ProfileView{Account: account, Profile: profile}, nil
}

// Update validates both forms independently and, only when both are clean, writes the
// account and profile in one transaction. On validation failure the returned view holds
// the submitted values so the editor can be re-rendered.
func (s *ProfileService) Update(ctx context.Context, accountID int64, af AccountForm, pf ProfileForm) (*ProfileView, forms.FieldErrors, error) {
	current, err := s.Load(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}

	af.Username = strings.TrimSpace(af.Username)
	af.Email = strings.TrimSpace(af.Email)

	fieldErrs := forms.Validate(&af)
	if err := checkUnique(ctx, s.store, af.Username, af.Email, accountID, fieldErrs); err != nil {
		return nil, nil, err
	}
	fieldErrs.Merge(forms.Validate(&pf))

	var pictureExt string
	if pf.Picture != nil {
		ext, ok := media.ImageExtension(pf.Picture.Data)
		if !ok || len(pf.Picture.Data) > MaxPictureBytes {
			fieldErrs.Add("picture", forms.MsgInvalidImage)
		}
		pictureExt = ext
	}

	account := *current.Account
	account.Username = af.Username
	account.Email = af.Email
	account.FirstName = strings.TrimSpace(af.FirstName)
	account.LastName = strings.TrimSpace(af.LastName)

	profile := *current.Profile
	profile.Bio = pf.Bio
	submitted := &ProfileView{Account: &account, Profile: &profile}

	if fieldErrs.Any() {
		return submitted, fieldErrs, nil
	}

	oldPicture := current.Profile.Picture
	var newPicture string
	if pf.Picture != nil {
		newPicture = media.ProfilePictureKey(pictureExt)
		if err := s.blobs.StoreBlob(ctx, newPicture, pf.Picture.Data); err != nil {
			return nil, nil, errors.Wrap(err, "failed to store profile picture")
		}
		profile.Picture = newPicture
	}

	err = s.store.InTx(ctx, func(tx ports.IdentityStore) error {
		if err := SaveAccount(ctx, tx, &account); err != nil {
			return err
		}
		return tx.Profiles().Update(ctx, &profile)
	})
	if err != nil {
		if newPicture != "" {
			s.discard(ctx, newPicture)
		}
		if conflictErrs := conflictFieldErrors(err); conflictErrs != nil {
			profile.Picture = oldPicture
			return submitted, conflictErrs, nil
		}
		return nil, nil, errors.Wrap(err, "failed to update profile")
	}

	if newPicture != "" && oldPicture != "" {
		s.discard(ctx, oldPicture)
	}
	s.logger.Info("profile updated", zap.Int64("account_id", accountID))
	return &ProfileView{Account: &account, Profile: &profile}, nil, nil
}

func (s *ProfileService) discard(ctx context.Context, key string) {
	if err := s.blobs.DeleteBlob(ctx, key); err != nil {
		s.logger.Warn("failed to remove profile picture", zap.String("key", key), zap.Error(err))
	}
}
