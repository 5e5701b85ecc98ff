package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseConfig(t *testing.T) {
	want := Server{
		API: Api{HTTPAddr: "0.0.0.0:8002"},
		GitHub: GitHub{
			Repository: "donmikel/gitdrop-files",
			Branch:     "main",
			APIBaseURL: "https://api.github.com",
			RawBaseURL: "https://raw.githubusercontent.com",
		},
		Upload: Upload{MaxSizeBytes: 524288000},
	}

	got, err := Parse("config.yml")

	assert.Equal(t, nil, err)
	assert.Equal(t, want, got)

	got.GitHub.Token = "ghp_test"
	assert.NoError(t, got.Validate())
}

func TestValidateMissingToken(t *testing.T) {
	cfg, err := Parse("config.yml")
	assert.NoError(t, err)

	assert.Error(t, cfg.Validate())
}
