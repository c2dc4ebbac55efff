// Package validation holds the request validation rules shared by every endpoint.
package validation

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NotBlankTag rejects strings made only of whitespace
const NotBlankTag = "notblank"

// Register installs the custom rules on v and makes error fields report the JSON (or
// form) name instead of the Go field name.
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(fieldName)
	return v.RegisterValidation(NotBlankTag, notBlank)
}

func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

func notBlank(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return true
	}
	return strings.TrimSpace(field.String()) != ""
}
