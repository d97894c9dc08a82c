package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for complex rules
// that cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	// Run struct tag validation
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	// Custom validation rules that can't be expressed in tags
	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// A burst without a rate would never refill
	rl := cfg.Store.RateLimit
	if rl.RequestsPerSecond == 0 && rl.Burst > 0 {
		return fmt.Errorf("store.rate_limit: burst is set but requests_per_second is 0")
	}

	// The selected store must carry the fields its factory requires
	switch cfg.Store.Type {
	case "badger":
		if stringOption(cfg.Store.Badger, "path") == "" && !boolOption(cfg.Store.Badger, "in_memory") {
			return fmt.Errorf("store.badger: path is required unless in_memory is set")
		}
	case "mongo":
		if stringOption(cfg.Store.Mongo, "uri") == "" {
			return fmt.Errorf("store.mongo: uri is required")
		}
	case "s3":
		if stringOption(cfg.Store.S3, "bucket") == "" {
			return fmt.Errorf("store.s3: bucket is required")
		}
		if stringOption(cfg.Store.S3, "region") == "" {
			return fmt.Errorf("store.s3: region is required")
		}
	}

	return nil
}

func stringOption(options map[string]any, key string) string {
	s, _ := options[key].(string)
	return s
}

func boolOption(options map[string]any, key string) bool {
	b, _ := options[key].(bool)
	return b
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		// Return the first validation error with context
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
