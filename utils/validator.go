package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator; field names in errors follow json tags.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("lnglat", validLngLat)
	})
	return validate
}

// validLngLat accepts a GeoJSON position: [longitude, latitude] within range.
func validLngLat(fl validator.FieldLevel) bool {
	pos, ok := fl.Field().Interface().([]float64)
	if !ok || len(pos) != 2 {
		return false
	}
	return pos[0] >= -180 && pos[0] <= 180 && pos[1] >= -90 && pos[1] <= 90
}

func ValidateStruct(s interface{}) error {
	return Validator().Struct(s)
}

type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// FormatValidationErrors converts validator.ValidationErrors into client facing details.
func FormatValidationErrors(err error) []ValidationError {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	out := make([]ValidationError, len(ve))
	for i, fe := range ve {
		field := fieldPath(fe)
		out[i] = ValidationError{Field: field, Tag: fe.Tag()}
		switch fe.Tag() {
		case "required":
			out[i].Message = fmt.Sprintf("%s is required", field)
		case "email":
			out[i].Message = fmt.Sprintf("%s must be a valid email address", field)
		case "min":
			out[i].Message = fmt.Sprintf("%s must be at least %s", field, fe.Param())
		case "max":
			out[i].Message = fmt.Sprintf("%s must be at most %s", field, fe.Param())
		case "gte":
			out[i].Message = fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
		case "lnglat":
			out[i].Message = fmt.Sprintf("%s must be [longitude, latitude] within range", field)
		case "oneof":
			out[i].Message = fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
		default:
			out[i].Message = fmt.Sprintf("validation failed on field '%s' for tag '%s'", field, fe.Tag())
		}
	}
	return out
}

// fieldPath drops the root struct name: "Property.location.address.city" -> "location.address.city".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}
