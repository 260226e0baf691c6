// Package validation checks configuration structs and request descriptors.
//
// Struct tag validation (go-playground/validator) is used for config
// sections; field names are reported by their mapstructure key:
//
//	type Config struct {
//	    BaseURL string `mapstructure:"base_url" validate:"required,url"`
//	}
//	err := validation.Validate(cfg)
//
// Programmatic checks collect errors before failing once:
//
//	v := validation.New()
//	v.Required("method", r.Method).Custom(ok, "multipart", "requires POST, PUT or PATCH")
//	err := v.Err()
package validation
