package config

import "fmt"

// Validate checks that a resolved Config is internally consistent enough
// to start either service on.
func Validate(cfg *Config) error {
	if cfg.DataDir == "" {
		return NewValidationError("data_dir", ErrMissingRequiredField)
	}
	if cfg.UploadDir == "" {
		return NewValidationError("upload_dir", ErrMissingRequiredField)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return NewValidationError("port", fmt.Errorf("%w: %d", ErrInvalidValue, cfg.Port))
	}

	if cfg.Database.Host == "" {
		return NewValidationError("database.host", ErrMissingRequiredField)
	}
	if cfg.Database.Name == "" {
		return NewValidationError("database.name", ErrMissingRequiredField)
	}

	if cfg.GPU.WorkerPort <= 0 || cfg.GPU.WorkerPort > 65535 {
		return NewValidationError("gpu.worker_port", fmt.Errorf("%w: %d", ErrInvalidValue, cfg.GPU.WorkerPort))
	}
	if cfg.GPU.PollInterval <= 0 {
		return NewValidationError("gpu.poll_interval", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}

	if cfg.SmartPlug.Enabled {
		if cfg.SmartPlug.DeviceID == "" {
			return NewValidationError("smart_plug.device_id", ErrMissingRequiredField)
		}
		if cfg.SmartPlug.IPAddress == "" {
			return NewValidationError("smart_plug.ip_address", ErrMissingRequiredField)
		}
		if cfg.SmartPlug.LocalKey == "" {
			return NewValidationError("smart_plug.local_key", ErrMissingRequiredField)
		}
	}

	return nil
}
