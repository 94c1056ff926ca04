package config

import "time"

// Config is the fully-resolved configuration for either MeetScribe
// service. Both cmd/frontend and cmd/worker load it from the same YAML
// shape; each binary only reads the sections it needs.
type Config struct {
	DataDir   string `yaml:"data_dir"`
	UploadDir string `yaml:"upload_dir"`

	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	APIToken string `yaml:"api_token"`

	Database DatabaseConfig `yaml:"database"`
	GPU      GPUConfig      `yaml:"gpu"`
	Fallback FallbackConfig `yaml:"fallback"`
	SmartPlug SmartPlugConfig `yaml:"smart_plug"`
	LLM      LLMConfig      `yaml:"llm"`

	// LocalSpeakerName is the speaker label given to the track that
	// represents the local participant (the mic track), before
	// diarization; when the mic track is the only track, diarization
	// replaces it.
	LocalSpeakerName string `yaml:"local_speaker_name"`

	JobRetention JobRetentionConfig `yaml:"job_retention"`
}

// DatabaseConfig configures the frontend's PostgreSQL connection.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

// GPUConfig configures how the frontend reaches the GPU worker.
type GPUConfig struct {
	Host         string        `yaml:"host"`
	WorkerPort   int           `yaml:"worker_port"`
	WorkerToken  string        `yaml:"worker_token"`
	Timeout      time.Duration `yaml:"timeout"`
	SubmitTimeout time.Duration `yaml:"submit_timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
	BootWaitTime time.Duration `yaml:"boot_wait_time"`
	CheckInterval time.Duration `yaml:"check_interval"`
}

// FallbackConfig configures the CPU fallback transcriber used when the
// GPU worker cannot be reached or woken.
type FallbackConfig struct {
	Enabled   bool          `yaml:"enabled"`
	ModelSize string        `yaml:"model_size"`
	Timeout   time.Duration `yaml:"timeout"`
}

// SmartPlugConfig configures the Tuya smart plug that powers the GPU
// worker's host machine on and off.
type SmartPlugConfig struct {
	Enabled   bool   `yaml:"enabled"`
	DeviceID  string `yaml:"device_id"`
	IPAddress string `yaml:"ip_address"`
	LocalKey  string `yaml:"local_key"`
	Version   string `yaml:"version"`
}

// LLMConfig configures the optional post-extraction step that
// summarizes a finished transcript. An empty Endpoint leaves extraction
// disabled; the frontend falls back to extraction.NoopExtractor.
type LLMConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
}

// JobRetentionConfig configures the frontend's periodic job cleanup.
type JobRetentionConfig struct {
	MaxAge   time.Duration `yaml:"max_age"`
	Interval time.Duration `yaml:"interval"`
}

// yamlConfig is the on-disk shape, with pointers so the loader can tell
// "absent" apart from "zero value" before merging onto defaults.
type yamlConfig struct {
	DataDir   string `yaml:"data_dir"`
	UploadDir string `yaml:"upload_dir"`

	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	APIToken string `yaml:"api_token"`

	Database *DatabaseConfig    `yaml:"database"`
	GPU      *GPUConfig         `yaml:"gpu"`
	Fallback *FallbackConfig    `yaml:"fallback"`
	SmartPlug *SmartPlugConfig  `yaml:"smart_plug"`
	LLM      *LLMConfig         `yaml:"llm"`

	LocalSpeakerName string `yaml:"local_speaker_name"`

	JobRetention *JobRetentionConfig `yaml:"job_retention"`
}
