package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	playground "github.com/go-playground/validator/v10"
)

const (
	flagTag    = "flag"
	flagPrefix = "--"

	errRequiredFmt = "%s is required"
	errOneOfFmt    = "%s must be one of: %s"
	errGteFmt      = "%s must be at least %s"
	errGenericFmt  = "%s failed %q validation"
)

var validate = newValidate()

func newValidate() *playground.Validate {
	v := playground.New()
	// Report problems by the command-line flag a user actually typed.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if name := field.Tag.Get(flagTag); name != "" && name != "-" {
			return flagPrefix + name
		}
		return field.Name
	})
	return v
}

// Flags validates s and returns one human readable problem per failing field,
// in declaration order. Nested structs are validated too.
func Flags(s any) []string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs playground.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, describe(fe))
	}
	return problems
}

func describe(fe playground.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf(errRequiredFmt, fe.Field())
	case "oneof":
		return fmt.Sprintf(errOneOfFmt, fe.Field(), strings.Join(strings.Fields(fe.Param()), ", "))
	case "gte":
		return fmt.Sprintf(errGteFmt, fe.Field(), fe.Param())
	default:
		return fmt.Sprintf(errGenericFmt, fe.Field(), fe.Tag())
	}
}
