package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// DaemonConfig drives local scheduled invocation when the handlers run
// outside Lambda.
type DaemonConfig struct {
	Version       int                  `yaml:"version"`
	Region        string               `yaml:"region"`
	Jobs          []JobConfig          `yaml:"jobs"`
	Notifications []NotificationConfig `yaml:"notifications"`
}

type JobConfig struct {
	Name     string         `yaml:"name"`
	Handler  string         `yaml:"handler"`
	Schedule string         `yaml:"schedule"`
	Payload  map[string]any `yaml:"payload"`
}

type NotificationConfig struct {
	Type   string              `yaml:"type"`
	On     []string            `yaml:"on"`
	Config NotificationDetails `yaml:"config"`
}

type NotificationDetails struct {
	URL      string            `yaml:"url"`
	Headers  map[string]string `yaml:"headers"`
	TopicARN string            `yaml:"topic_arn" mapstructure:"topic_arn"`
}

func LoadDaemonConfig(path string) (*DaemonConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg DaemonConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	expandDaemonConfig(&cfg)

	return &cfg, nil
}

// expandDaemonConfig resolves ${VAR} references so secrets stay out of the
// config file.
func expandDaemonConfig(cfg *DaemonConfig) {
	cfg.Region = os.ExpandEnv(cfg.Region)

	for i := range cfg.Jobs {
		job := &cfg.Jobs[i]
		job.Name = os.ExpandEnv(job.Name)
		job.Handler = os.ExpandEnv(job.Handler)
		job.Schedule = os.ExpandEnv(job.Schedule)
		for k, v := range job.Payload {
			if s, ok := v.(string); ok {
				job.Payload[k] = os.ExpandEnv(s)
			}
		}
	}

	for i := range cfg.Notifications {
		nt := &cfg.Notifications[i]
		nt.Type = os.ExpandEnv(nt.Type)
		for j := range nt.On {
			nt.On[j] = os.ExpandEnv(nt.On[j])
		}
		nt.Config.URL = os.ExpandEnv(nt.Config.URL)
		nt.Config.TopicARN = os.ExpandEnv(nt.Config.TopicARN)
		for k, v := range nt.Config.Headers {
			nt.Config.Headers[k] = os.ExpandEnv(v)
		}
	}
}
