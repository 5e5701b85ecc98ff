package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

const (
	defaultAPIBaseURL = "https://api.github.com"
	defaultRawBaseURL = "https://raw.githubusercontent.com"
	defaultBranch     = "main"
)

type Server struct {
	API    Api    `yaml:"api"`
	GitHub GitHub `yaml:"github"`
	Upload Upload `yaml:"upload"`
}

type Api struct {
	HTTPAddr string `yaml:"http_addr"`
}

type GitHub struct {
	// Repository is the "owner/name" identifier of the target repository.
	Repository string `yaml:"repository"`
	Branch     string `yaml:"branch"`
	APIBaseURL string `yaml:"api_base_url"`
	RawBaseURL string `yaml:"raw_base_url"`
	// Token is never read from the config file; main sources it from the
	// GITHUB_TOKEN environment variable.
	Token string `yaml:"-"`
}

type Upload struct {
	MaxSizeBytes int64 `yaml:"max_size_bytes"`
}

func Parse(path string) (Server, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Server{}, fmt.Errorf("can't read config file: %w", err)
	}

	var cfg Server
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return Server{}, fmt.Errorf("can't unmarshal config: %w", err)
	}

	if cfg.GitHub.APIBaseURL == "" {
		cfg.GitHub.APIBaseURL = defaultAPIBaseURL
	}
	if cfg.GitHub.RawBaseURL == "" {
		cfg.GitHub.RawBaseURL = defaultRawBaseURL
	}
	if cfg.GitHub.Branch == "" {
		cfg.GitHub.Branch = defaultBranch
	}

	return cfg, nil
}

func (s Server) Validate() error {
	if s.API.HTTPAddr == "" {
		return fmt.Errorf("api.http_addr is required")
	}
	if s.GitHub.Repository == "" {
		return fmt.Errorf("github.repository is required")
	}
	if s.GitHub.Branch == "" {
		return fmt.Errorf("github.branch is required")
	}
	if s.GitHub.Token == "" {
		return fmt.Errorf("GITHUB_TOKEN is not set")
	}
	return nil
}
