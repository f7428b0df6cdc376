package services

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct runs struct tag validation and reports the first failing
// field as a *domain.ValidationError.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		reason := fe.Tag()
		if fe.Param() != "" {
			reason = fmt.Sprintf("%s=%s", fe.Tag(), fe.Param())
		}
		return &domain.ValidationError{Field: fe.Field(), Reason: "failed " + reason}
	}
	return &domain.ValidationError{Reason: err.Error()}
}
