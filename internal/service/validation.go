package service

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names so messages match what clients sent.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("cents", func(fl validator.FieldLevel) bool {
		return isWholeCents(fl.Field().Float())
	})
	return v
}

// isWholeCents reports whether amount has at most two decimal places.
func isWholeCents(amount float64) bool {
	c := amount * 100
	return math.Abs(c-math.Round(c)) < 1e-3
}

// roundCents rounds amount to the nearest cent.
func roundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// checkStruct runs the struct's validate tags and converts the first
// failure into a ValidationError.
func checkStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return invalid(field, "%s is required", field)
	case "email":
		return invalid(field, "%s must be a valid email address", field)
	case "gte", "min":
		return invalid(field, "%s must be at least %s", field, fe.Param())
	case "gt":
		return invalid(field, "%s must be greater than %s", field, fe.Param())
	case "lte", "max":
		return invalid(field, "%s must be at most %s", field, fe.Param())
	case "cents":
		return invalid(field, "%s must have at most two decimal places", field)
	case "oneof":
		return invalid(field, "%s must be one of: %s", field, fe.Param())
	default:
		return invalid(field, "%s is invalid", field)
	}
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}

// parseShowDate accepts a plain calendar date or a timestamp and
// returns the calendar date at UTC midnight.
func parseShowDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, invalid("date", "date must be YYYY-MM-DD or RFC 3339")
}

func trimAll(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}
