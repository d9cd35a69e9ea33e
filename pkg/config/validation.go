package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks the configuration via struct tags plus the rules
// that cannot be expressed in tags.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	switch cfg.Store.Type {
	case "postgres":
		if len(cfg.Store.Postgres) == 0 {
			return fmt.Errorf("store: type is postgres but store.postgres section is empty")
		}
	case "badger":
		if len(cfg.Store.Badger) == 0 {
			return fmt.Errorf("store: type is badger but store.badger section is empty")
		}
	}

	if cfg.Server.RateBurst > 0 && cfg.Server.RateLimit == 0 {
		return fmt.Errorf("server: rate_burst set without rate_limit")
	}
	return nil
}

// formatValidationError converts validator errors into readable
// messages carrying the failing field and tag.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return fmt.Errorf("config validation: %w", err)
}
