package config

import "time"

// Defaults returns MeetScribe's built-in configuration. YAML values, and
// then environment variables for a handful of secrets, are merged on top
// of this during Load.
func Defaults() *Config {
	return &Config{
		DataDir:   "./data",
		UploadDir: "./data/uploads",
		Host:      "0.0.0.0",
		Port:      8000,
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "meetscribe",
			Name:    "meetscribe",
			SSLMode: "disable",
		},
		GPU: GPUConfig{
			WorkerPort:    8001,
			Timeout:       10 * time.Minute,
			SubmitTimeout: 30 * time.Second,
			PollInterval:  5 * time.Second,
			BootWaitTime:  5 * time.Minute,
			CheckInterval: 10 * time.Second,
		},
		Fallback: FallbackConfig{
			Enabled:   true,
			ModelSize: "base",
			Timeout:   20 * time.Minute,
		},
		SmartPlug: SmartPlugConfig{
			Version: "3.3",
		},
		LLM: LLMConfig{
			Timeout: 2 * time.Minute,
		},
		LocalSpeakerName: "Me",
		JobRetention: JobRetentionConfig{
			MaxAge:   7 * 24 * time.Hour,
			Interval: time.Hour,
		},
	}
}
