package config

import "fmt"

// Validator validates configuration comprehensively with clear error messages.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast - stops at first error).
func (v *Validator) ValidateAll() error {
	if err := v.validateSockets(); err != nil {
		return fmt.Errorf("socket validation failed: %w", err)
	}

	if err := v.validateDefaults(); err != nil {
		return fmt.Errorf("defaults validation failed: %w", err)
	}

	if err := v.validateSlack(); err != nil {
		return fmt.Errorf("slack validation failed: %w", err)
	}

	if err := v.validateDatabase(); err != nil {
		return fmt.Errorf("database validation failed: %w", err)
	}

	return nil
}

func (v *Validator) validateSockets() error {
	for id, socket := range v.cfg.SocketRegistry.GetAll() {
		if socket.SystemPrompt == "" {
			return NewValidationError("socket", id, "system_prompt", fmt.Errorf("%w", ErrMissingRequiredField))
		}
		if len(id) == 0 {
			return NewValidationError("socket", id, "id", fmt.Errorf("%w: socket id must not be empty", ErrInvalidValue))
		}
	}
	return nil
}

func (v *Validator) validateDefaults() error {
	d := v.cfg.Defaults
	if d == nil {
		return fmt.Errorf("defaults configuration is nil")
	}

	if d.AIProvider == "" {
		return NewValidationError("defaults", "", "ai_provider", fmt.Errorf("%w", ErrMissingRequiredField))
	}
	if d.CooldownSecondsDefault < 0 {
		return NewValidationError("defaults", "", "cooldown_seconds_default",
			fmt.Errorf("must be non-negative, got %v", d.CooldownSecondsDefault))
	}
	if d.MaxRoundsDefault < 1 {
		return NewValidationError("defaults", "", "max_rounds_default",
			fmt.Errorf("must be at least 1, got %d", d.MaxRoundsDefault))
	}
	if d.ExternalTurnTimeout <= 0 {
		return NewValidationError("defaults", "", "external_turn_timeout",
			fmt.Errorf("must be positive, got %v", d.ExternalTurnTimeout))
	}
	if d.StopGrace <= 0 {
		return NewValidationError("defaults", "", "stop_grace",
			fmt.Errorf("must be positive, got %v", d.StopGrace))
	}
	if d.MaxContextMessages < 1 {
		return NewValidationError("defaults", "", "max_context_messages",
			fmt.Errorf("must be at least 1, got %d", d.MaxContextMessages))
	}
	if d.IdlePassMultiplier < 1 {
		return NewValidationError("defaults", "", "idle_pass_multiplier",
			fmt.Errorf("must be at least 1, got %d", d.IdlePassMultiplier))
	}

	return nil
}

func (v *Validator) validateSlack() error {
	s := v.cfg.Slack
	if s == nil || !s.Enabled {
		return nil
	}
	if s.Channel == "" {
		return NewValidationError("slack", "", "channel",
			fmt.Errorf("channel is required when slack notifications are enabled"))
	}
	if s.TokenEnv == "" {
		return NewValidationError("slack", "", "token_env",
			fmt.Errorf("token_env is required when slack notifications are enabled"))
	}
	return nil
}

func (v *Validator) validateDatabase() error {
	d := v.cfg.Database
	if d.Host == "" {
		return NewValidationError("database", "", "host", fmt.Errorf("%w", ErrMissingRequiredField))
	}
	if d.Port < 1 || d.Port > 65535 {
		return NewValidationError("database", "", "port", fmt.Errorf("must be between 1 and 65535, got %d", d.Port))
	}
	if d.Database == "" {
		return NewValidationError("database", "", "database", fmt.Errorf("%w", ErrMissingRequiredField))
	}
	if d.MaxOpenConns < 1 {
		return NewValidationError("database", "", "max_open_conns", fmt.Errorf("must be at least 1, got %d", d.MaxOpenConns))
	}
	if d.MaxIdleConns < 0 {
		return NewValidationError("database", "", "max_idle_conns", fmt.Errorf("must be non-negative, got %d", d.MaxIdleConns))
	}
	return nil
}
