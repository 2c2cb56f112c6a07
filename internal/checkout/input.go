package checkout

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/anandkp/shelfwise-backend/pkg/errors"
	"github.com/anandkp/shelfwise-backend/pkg/types"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// AddressInput is the address step payload. The phone must be a 10-digit
// Indian mobile and the postal code a 6-digit PIN.
type AddressInput struct {
	FullName   string `json:"fullName" validate:"required,min=2,max=120"`
	Line1      string `json:"line1" validate:"required,max=255"`
	Line2      string `json:"line2" validate:"max=255"`
	City       string `json:"city" validate:"required,max=100"`
	RegionCode string `json:"regionCode" validate:"required,len=2,alpha"`
	PostalCode string `json:"postalCode" validate:"required,len=6,numeric"`
	Phone      string `json:"phone" validate:"required,len=10,numeric,startswith=6|startswith=7|startswith=8|startswith=9"`
	Email      string `json:"email" validate:"required,email"`
}

// Validate reports field-specific failures as structured details.
func (in AddressInput) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid address")
	}

	details := map[string]string{}
	for _, fieldErr := range errs {
		details[fieldErr.Field()] = addressFieldMessage(fieldErr)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid address").WithDetails(details)
}

// ToAddress maps the validated input onto the stored snapshot shape.
func (in AddressInput) ToAddress() types.Address {
	return types.Address{
		FullName:   strings.TrimSpace(in.FullName),
		Line1:      strings.TrimSpace(in.Line1),
		Line2:      strings.TrimSpace(in.Line2),
		City:       strings.TrimSpace(in.City),
		RegionCode: strings.ToUpper(strings.TrimSpace(in.RegionCode)),
		PostalCode: strings.TrimSpace(in.PostalCode),
		Phone:      strings.TrimSpace(in.Phone),
		Email:      strings.TrimSpace(in.Email),
	}
}

func addressFieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "must be a valid email"
	case "len":
		if fe.Field() == "phone" {
			return "must be a 10-digit mobile number"
		}
		if fe.Field() == "postalCode" {
			return "must be a 6-digit PIN code"
		}
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "numeric":
		return "must contain only digits"
	case "alpha":
		return "must contain only letters"
	}
	if strings.HasPrefix(fe.Tag(), "startswith") {
		return "must be a valid mobile number"
	}
	return "is invalid"
}
