// validate.go holds the request payloads sent to the backend and the
// fail-fast checks applied before any of them leaves the process.
package main

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultUserQuery is sent when the caller leaves the question blank.
const DefaultUserQuery = "What Are The Agricultural Risks For My Farm?"

// emailPattern is the deliberately minimal shape check: one '@', a '.'
// somewhere after it, and no whitespace anywhere.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("farmer_email", func(fl validator.FieldLevel) bool {
		return ValidEmail(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// ValidEmail reports whether s passes the minimal email check.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// StartRequest is the body of POST /tasks/start.
type StartRequest struct {
	Location            string `json:"Location" validate:"required"`
	FarmerEmail         string `json:"FarmerEmail" validate:"required,farmer_email"`
	FarmerPhone         string `json:"FarmerPhone,omitempty" validate:"omitempty,min=10"`
	DaysAhead           int    `json:"DaysAhead" validate:"min=1,max=90"`
	UserQuery           string `json:"UserQuery"`
	ConfidenceThreshold int    `json:"ConfidenceThreshold" validate:"min=0,max=100"`
	MaxIterations       int    `json:"MaxIterations" validate:"min=1,max=5"`
}

// ForecastRequest is the body of the synchronous POST /forecast path.
type ForecastRequest struct {
	Location    string `json:"Location" validate:"required"`
	FarmerEmail string `json:"FarmerEmail" validate:"required,farmer_email"`
	FarmerPhone string `json:"FarmerPhone,omitempty" validate:"omitempty,min=10"`
	DaysAhead   int    `json:"DaysAhead" validate:"min=1,max=90"`
	UserQuery   string `json:"UserQuery"`
}

// withDefaults trims free-text fields and fills zero values from cfg.
// ConfidenceThreshold of zero is treated as "unset".
func (r StartRequest) withDefaults(cfg Config) StartRequest {
	r.Location = strings.TrimSpace(r.Location)
	r.FarmerEmail = strings.TrimSpace(r.FarmerEmail)
	r.FarmerPhone = strings.TrimSpace(r.FarmerPhone)
	r.UserQuery = strings.TrimSpace(r.UserQuery)
	if r.UserQuery == "" {
		r.UserQuery = DefaultUserQuery
	}
	if r.DaysAhead == 0 {
		r.DaysAhead = cfg.DaysAhead
	}
	if r.ConfidenceThreshold == 0 {
		r.ConfidenceThreshold = cfg.ConfidenceThreshold
	}
	if r.MaxIterations == 0 {
		r.MaxIterations = cfg.MaxIterations
	}
	return r
}

func (r ForecastRequest) withDefaults(cfg Config) ForecastRequest {
	r.Location = strings.TrimSpace(r.Location)
	r.FarmerEmail = strings.TrimSpace(r.FarmerEmail)
	r.FarmerPhone = strings.TrimSpace(r.FarmerPhone)
	r.UserQuery = strings.TrimSpace(r.UserQuery)
	if r.UserQuery == "" {
		r.UserQuery = DefaultUserQuery
	}
	if r.DaysAhead == 0 {
		r.DaysAhead = cfg.DaysAhead
	}
	return r
}

// validateRequest runs the struct rules and converts the first violation
// into a *ValidationError.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Field: "request", Reason: err.Error()}
	}
	fe := fieldErrs[0]
	return &ValidationError{Field: fe.Field(), Reason: describeRule(fe)}
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "farmer_email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q rule", fe.Tag())
	}
}
