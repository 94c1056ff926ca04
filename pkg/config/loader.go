package config

import (
	"fmt"
	"log/slog"
	"os"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads MeetScribe's YAML configuration from path, merges it onto
// the built-in defaults, layers a handful of secret overrides from the
// environment (so credentials never have to live in the YAML file), and
// validates the result.
//
// A missing configPath is not an error: the built-in defaults plus any
// environment overrides are used as-is, which is enough to run MeetScribe
// against a local PostgreSQL with no GPU worker configured.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	cfg := Defaults()

	if configPath != "" {
		yc, err := loadYAML(configPath)
		if err != nil {
			return nil, err
		}
		if yc != nil {
			if err := applyYAML(cfg, yc); err != nil {
				return nil, fmt.Errorf("failed to merge configuration: %w", err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadYAML(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("configuration file not found, using defaults", "path", path)
			return nil, nil
		}
		return nil, NewLoadError(path, err)
	}

	data = ExpandEnv(data)

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}
	return &yc, nil
}

// applyYAML merges each section of yc onto cfg in place. Non-zero fields
// in yc win; zero fields leave the existing default untouched.
func applyYAML(cfg *Config, yc *yamlConfig) error {
	if yc.DataDir != "" {
		cfg.DataDir = yc.DataDir
	}
	if yc.UploadDir != "" {
		cfg.UploadDir = yc.UploadDir
	}
	if yc.Host != "" {
		cfg.Host = yc.Host
	}
	if yc.Port != 0 {
		cfg.Port = yc.Port
	}
	if yc.APIToken != "" {
		cfg.APIToken = yc.APIToken
	}
	if yc.LocalSpeakerName != "" {
		cfg.LocalSpeakerName = yc.LocalSpeakerName
	}

	if yc.Database != nil {
		if err := mergo.Merge(&cfg.Database, yc.Database, mergo.WithOverride); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if yc.GPU != nil {
		if err := mergo.Merge(&cfg.GPU, yc.GPU, mergo.WithOverride); err != nil {
			return fmt.Errorf("gpu: %w", err)
		}
	}
	if yc.Fallback != nil {
		if err := mergo.Merge(&cfg.Fallback, yc.Fallback, mergo.WithOverride); err != nil {
			return fmt.Errorf("fallback: %w", err)
		}
	}
	if yc.SmartPlug != nil {
		if err := mergo.Merge(&cfg.SmartPlug, yc.SmartPlug, mergo.WithOverride); err != nil {
			return fmt.Errorf("smart_plug: %w", err)
		}
	}
	if yc.LLM != nil {
		if err := mergo.Merge(&cfg.LLM, yc.LLM, mergo.WithOverride); err != nil {
			return fmt.Errorf("llm: %w", err)
		}
	}
	if yc.JobRetention != nil {
		if err := mergo.Merge(&cfg.JobRetention, yc.JobRetention, mergo.WithOverride); err != nil {
			return fmt.Errorf("job_retention: %w", err)
		}
	}

	return nil
}

// applyEnvOverrides lets deployment secrets live outside the YAML file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MEETSCRIBE_API_TOKEN"); v != "" {
		cfg.APIToken = v
	}
	if v := os.Getenv("MEETSCRIBE_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("MEETSCRIBE_GPU_WORKER_TOKEN"); v != "" {
		cfg.GPU.WorkerToken = v
	}
	if v := os.Getenv("MEETSCRIBE_SMART_PLUG_LOCAL_KEY"); v != "" {
		cfg.SmartPlug.LocalKey = v
	}
	if v := os.Getenv("MEETSCRIBE_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
}
