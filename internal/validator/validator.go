package validator

import (
	"reflect"
	"strings"

	"github.com/classquiz/attempt-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator wraps the struct validator with the service's custom tags.
type Validator struct {
	structValidator *validator.Validate
}

// New creates a new validator instance with all custom tags registered.
func New() *Validator {
	structValidator := validator.New()
	registerCustomValidators(structValidator)
	return &Validator{structValidator: structValidator}
}

// Validate validates struct tags and converts failures to the shared
// ValidationErrors type.
func (v *Validator) Validate(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		if ve := ToValidationErrors(err); len(ve) > 0 {
			return ve
		}
		return err
	}
	return nil
}

func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("quiz_type", validateQuizType)
	validate.RegisterValidation("item_kind", validateItemKind)
	validate.RegisterValidation("attempt_status", validateAttemptStatus)

	// Use json tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateQuizType(fl validator.FieldLevel) bool {
	switch models.QuizType(fl.Field().String()) {
	case models.QuizTypeBasic, models.QuizTypeRapid, models.QuizTypeCrossword:
		return true
	}
	return false
}

func validateItemKind(fl validator.FieldLevel) bool {
	switch models.ItemKind(fl.Field().String()) {
	case models.ItemKindChoice, models.ItemKindText:
		return true
	}
	return false
}

func validateAttemptStatus(fl validator.FieldLevel) bool {
	switch models.AttemptStatus(fl.Field().String()) {
	case models.AttemptStatusInProgress, models.AttemptStatusFinished, models.AttemptStatusTimedOut:
		return true
	}
	return false
}
