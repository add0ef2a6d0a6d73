// Package validation wraps a shared go-playground validator instance.
//
// Besides the built-in tags it registers:
//   - username: 1-64 characters from [A-Za-z0-9_.-]
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]{1,64}$`)

var (
	once     sync.Once
	instance *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernamePattern.MatchString(fl.Field().String())
		})
		v.RegisterTagNameFunc(jsonFieldName)
		instance = v
	})
	return instance
}

// Struct validates s and returns a single readable error naming every
// failing field, or nil.
func Struct(s any) error {
	err := get().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	return fmt.Sprintf("%s %s", fe.Field(), rule(fe.Tag(), fe.Param()))
}

func rule(tag, param string) string {
	switch tag {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + param + " long"
	case "max":
		return "must be at most " + param + " long"
	case "gte":
		return "must be >= " + param
	case "lte":
		return "must be <= " + param
	case "oneof":
		return "must be one of [" + param + "]"
	case "username":
		return "must be 1-64 characters of letters, digits, '_', '.' or '-'"
	default:
		return "failed " + tag
	}
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}
