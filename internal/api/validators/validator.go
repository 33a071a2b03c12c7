package validators

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/felipe/zapgateway/internal/errs"
)

var validate = validator.New()

// ValidateStruct valida as tags validate e devolve um ValidationError
// com o primeiro campo inválido
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrors) == 0 {
		return errs.Validation("", err.Error())
	}

	first := validationErrors[0]
	return errs.Validation(fieldName(first), tagMessage(first))
}

// ParseAndValidate decodifica o corpo JSON e valida as tags
func ParseAndValidate(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return errs.Validation("body", "invalid JSON body")
	}
	return ValidateStruct(out)
}

func fieldName(fe validator.FieldError) string {
	return strings.ToLower(fe.Field())
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
