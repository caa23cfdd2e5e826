package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/domain"
)

var coordinateRanges = map[string]string{
	"latitude":  "-90 and 90",
	"longitude": "-180 and 180",
}

type reportValidator struct {
	validate *validator.Validate
}

func newReportValidator() *reportValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &reportValidator{validate: v}
}

// check validates report and returns its parsed timestamp. Failures come back
// as a KindValidation *domain.Error whose message names every bad field.
func (rv *reportValidator) check(report *domain.LocationReport) (time.Time, error) {
	if report == nil {
		return time.Time{}, domain.NewError(domain.KindValidation, nil, "request: required")
	}

	if err := rv.validate.Struct(report); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return time.Time{}, domain.NewError(domain.KindValidation, err, "invalid request")
		}
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, describe(fe))
		}
		return time.Time{}, domain.NewError(domain.KindValidation, nil, "%s", strings.Join(msgs, "; "))
	}

	ts, err := time.Parse(time.RFC3339, report.Timestamp)
	if err != nil {
		return time.Time{}, domain.NewError(domain.KindValidation, err, "timestamp: must be an RFC 3339 timestamp")
	}
	return ts, nil
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + ": required"
	case "gte", "lte":
		if r, ok := coordinateRanges[field]; ok {
			return fmt.Sprintf("%s: must be between %s", field, r)
		}
		if fe.Tag() == "gte" {
			return fmt.Sprintf("%s: must be >= %s", field, fe.Param())
		}
		return fmt.Sprintf("%s: must be <= %s", field, fe.Param())
	case "datetime":
		return field + ": must be an RFC 3339 timestamp"
	}
	return fmt.Sprintf("%s: failed %s", field, fe.Tag())
}
