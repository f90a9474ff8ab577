// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `LoadFrom` calls `validateStruct` immediately after it unmarshals and
// defaults the merged Koanf tree.  Any validation error aborts startup, so
// the binary never runs with partial or malformed configuration.
//
// Besides the stock tags (`required`, `oneof`, `min`, `hostname_port`) we
// register `tenancyorder`, which rejects precedence lists that name the
// same source twice.

package config

import "github.com/go-playground/validator/v10"

//
// validator instance (package-level singleton)
//

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	_ = val.RegisterValidation("tenancyorder", func(fl validator.FieldLevel) bool {
		seen := make(map[string]struct{}, fl.Field().Len())
		for i := 0; i < fl.Field().Len(); i++ {
			s := fl.Field().Index(i).String()
			if _, dup := seen[s]; dup {
				return false
			}
			seen[s] = struct{}{}
		}
		return true
	})
	return val
}

//
// public API
//

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	return v.Struct(c)
}
