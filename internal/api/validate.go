package api

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	validate = newValidator()

	// YYYY-MM-DD with an optional time part.
	isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}([T ].*)?$`)
)

func newValidator() *validator.Validate {
	v := validator.New()

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		val := strings.TrimSpace(fl.Field().String())
		if val == "" {
			return true
		}
		return isoDatePattern.MatchString(val)
	})
	return v
}

// validateStruct returns per-field messages, or nil when s is valid.
func validateStruct(s any) (map[string][]string, error) {
	err := validate.Struct(s)
	if err == nil {
		return nil, nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil, err
	}
	out := make(map[string][]string)
	for _, e := range ve {
		field := e.Field()
		switch e.Tag() {
		case "required":
			out[field] = append(out[field], "This field is required")
		case "email":
			out[field] = append(out[field], "Invalid email format")
		case "max":
			out[field] = append(out[field], fmt.Sprintf("Must be at most %s characters", e.Param()))
		case "gte":
			out[field] = append(out[field], fmt.Sprintf("Must be greater than or equal to %s", e.Param()))
		case "oneof":
			out[field] = append(out[field], "Value is not allowed")
		case "isodate":
			out[field] = append(out[field], "Must be a YYYY-MM-DD date")
		default:
			out[field] = append(out[field], e.Error())
		}
	}
	return out, nil
}
