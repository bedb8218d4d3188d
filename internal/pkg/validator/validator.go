package validator

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

// identifierPattern matches ids that are safe as a single storage key segment.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

func init() {
	validate = validator.New()
	// report form/json names so clients see the field they sent
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})
	_ = validate.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return IsIdentifier(fl.Field().String())
	})
}

// IsIdentifier reports whether s is a non-empty id made of letters, digits,
// '-' and '_', starting with a letter or digit.
func IsIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// Validate struct fields
func Validate(v interface{}) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errors["_"] = err.Error()
		return errors
	}
	for _, err := range verrs {
		if err.Param() != "" {
			errors[err.Field()] = err.Tag() + "=" + err.Param()
			continue
		}
		errors[err.Field()] = err.Tag()
	}
	return errors
}
