// Package validate wraps go-playground/validator for request bodies.
package validate

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var v = validator.New(validator.WithRequiredStructEnabled())

// Errors maps a JSON-ish field name to the failed rule.
type Errors map[string]string

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for f, tag := range e {
		parts = append(parts, f+": "+tag)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Struct validates s against its `validate` tags. It returns nil or Errors.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	out := make(Errors, len(ve))
	for _, fe := range ve {
		out[fieldName(fe.Namespace())] = fe.Tag()
	}
	return out
}

// fieldName drops the root struct name: "CreateRequest.Items[0].Quantity" -> "Items[0].Quantity".
func fieldName(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
