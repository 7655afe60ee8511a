// Package validation checks configuration values.
//
// Struct tags cover the static rules and report fields by their config key:
//
//	type BuildConfig struct {
//	    Workers   int    `mapstructure:"workers" validate:"gte=1"`
//	    OnFailure string `mapstructure:"on_failure" validate:"oneof=fail-fast best-effort"`
//	}
//	err := validation.Validate(cfg)
//
// The Validator collects the rest, such as directories that must exist:
//
//	v := validation.New().Dir("project.root", root)
//	if appErr := v.Validate(); appErr != nil { ... }
package validation
