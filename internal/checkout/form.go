package checkout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ttacon/libphonenumber"

	"github.com/ariefcatur/go-storefront/internal/apperr"
)

// ShippingForm is what the customer enters at checkout. Address, when set, replaces
// the street/house/zip/city parts.
type ShippingForm struct {
	FirstName   string `json:"first_name" validate:"required,max=100"`
	LastName    string `json:"last_name" validate:"required,max=100"`
	Phone       string `json:"phone_number" validate:"required,phone"`
	Street      string `json:"street" validate:"required_without=Address"`
	HouseNumber string `json:"house_number" validate:"required_without=Address"`
	ZipCode     string `json:"zip_code" validate:"required_without=Address"`
	City        string `json:"city" validate:"required_without=Address"`
	Address     string `json:"address"`
	Email       string `json:"email"`
}

// ComposeAddress renders "{street} {houseNumber}, {zipCode} {city}".
func ComposeAddress(f ShippingForm) string {
	if a := strings.TrimSpace(f.Address); a != "" {
		return a
	}
	return fmt.Sprintf("%s %s, %s %s",
		strings.TrimSpace(f.Street), strings.TrimSpace(f.HouseNumber),
		strings.TrimSpace(f.ZipCode), strings.TrimSpace(f.City))
}

func newValidate(region string) *validator.Validate {
	v := apperr.NewValidate()
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String(), region)
	})
	return v
}

func ValidPhone(phone, region string) bool {
	num, err := libphonenumber.Parse(phone, region)
	if err != nil {
		return false
	}
	return libphonenumber.IsValidNumber(num)
}

// NormalizePhone formats phone as E.164, reading numbers without a country code
// in region.
func NormalizePhone(phone, region string) (string, error) {
	num, err := libphonenumber.Parse(phone, region)
	if err != nil {
		return "", err
	}
	return libphonenumber.Format(num, libphonenumber.E164), nil
}

// validateGuestEmail requires a non-empty email containing "@".
func validateGuestEmail(v *validator.Validate, email string) error {
	err := v.Var(strings.TrimSpace(email), "required,contains=@")
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		return &apperr.ValidationError{Message: "invalid shipping details", Fields: map[string]string{"email": ves[0].Tag()}}
	}
	return err
}
