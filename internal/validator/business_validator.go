package validator

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// AllowedImageExtensions lists the accepted profile picture formats
var AllowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// BusinessValidator holds the custom rules of the study room domain
type BusinessValidator struct {
	validate *validator.Validate
}

func newBusinessValidator(validate *validator.Validate) *BusinessValidator {
	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()
	return bv
}

// ValidateRegistration validates the registration form
func (bv *BusinessValidator) ValidateRegistration(req *RegisterRequest) ValidationErrors {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = NormalizeEmail(req.Email)
	return bv.validateStruct(req)
}

// ValidateProfileUpdate validates profile edits including the picture extension
func (bv *BusinessValidator) ValidateProfileUpdate(req *ProfileUpdateRequest) ValidationErrors {
	req.Username = strings.TrimSpace(req.Username)
	return bv.validateStruct(req)
}

// ValidateRoom validates the room create/edit form
func (bv *BusinessValidator) ValidateRoom(req *RoomRequest) ValidationErrors {
	req.Name = strings.TrimSpace(req.Name)
	return bv.validateStruct(req)
}

func (bv *BusinessValidator) validateStruct(s interface{}) ValidationErrors {
	if err := bv.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// NormalizeEmail trims and lowercases an address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsAllowedImage reports whether the file name carries an accepted image extension
func IsAllowedImage(name string) bool {
	return AllowedImageExtensions[strings.ToLower(filepath.Ext(name))]
}

func (bv *BusinessValidator) registerBusinessRules() {
	bv.validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		if v != strings.TrimSpace(v) {
			return false
		}
		for _, r := range v {
			if unicode.IsControl(r) {
				return false
			}
		}
		return true
	})

	bv.validate.RegisterValidation("room_name", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	bv.validate.RegisterValidation("image_ext", func(fl validator.FieldLevel) bool {
		return IsAllowedImage(fl.Field().String())
	})
}
