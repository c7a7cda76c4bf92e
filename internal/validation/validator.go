// Package validation registers request binding rules on gin's validator and
// converts binding failures into field-level validation errors.
package validation

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/v2/bson"

	apperr "citypulse/internal/errors"
	"citypulse/internal/timewindow"
)

var registerOnce sync.Once

// Register adds the yyyymmdd, hhmmss and objectid tags to gin's binding
// validator. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(jsonName)
		_ = v.RegisterValidation("yyyymmdd", func(fl validator.FieldLevel) bool {
			return timewindow.ValidDate(fl.Field().String())
		})
		_ = v.RegisterValidation("hhmmss", func(fl validator.FieldLevel) bool {
			return timewindow.ValidTime(fl.Field().String())
		})
		_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
			_, err := bson.ObjectIDFromHex(fl.Field().String())
			return err == nil
		})
	})
}

func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

var messages = map[string]string{
	"required": "is required",
	"yyyymmdd": "must be a date in YYYYMMDD format",
	"hhmmss":   "must be a time in HHMMSS format",
	"objectid": "must be a valid id",
	"min":      "is below the minimum",
	"max":      "is above the maximum",
}

// Translate converts a binding error into a validation error naming the
// first offending top-level field
func Translate(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		msg, ok := messages[fe.Tag()]
		if !ok {
			msg = "is invalid"
		}
		return apperr.Validation(topField(fe.Namespace()), msg)
	}

	var syntax *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr):
		return apperr.Validationf(typeErr.Field, "must be %s", typeErr.Type.String())
	case errors.As(err, &syntax):
		return apperr.Validation("body", "malformed JSON")
	}
	return apperr.Validation("body", err.Error())
}

// topField turns "CreateEventRequest.dates[0].date" into "dates"
func topField(namespace string) string {
	parts := strings.Split(namespace, ".")
	field := parts[len(parts)-1]
	if len(parts) > 1 {
		field = parts[1]
	}
	if i := strings.IndexByte(field, '['); i >= 0 {
		field = field[:i]
	}
	return field
}
