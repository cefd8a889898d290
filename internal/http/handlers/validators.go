package handlers

import (
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"

	"github.com/geocoder89/speakup/internal/security"
)

var registerOnce sync.Once

// RegisterValidators adds the custom binding tags used by the request DTOs.
// It is safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("strongpassword", validateStrongPassword)
		_ = v.RegisterValidation("phone", validatePhone)
	})
}

func validateStrongPassword(fl validator.FieldLevel) bool {
	return security.ValidatePassword(fl.Field().String()) == nil
}

// validatePhone accepts numbers in international format, e.g. +14155552671.
func validatePhone(fl validator.FieldLevel) bool {
	raw := strings.TrimSpace(fl.Field().String())
	if !strings.HasPrefix(raw, "+") {
		return false
	}

	num, err := phonenumbers.Parse(raw, "")
	if err != nil {
		return false
	}

	return phonenumbers.IsPossibleNumber(num)
}
