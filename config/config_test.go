package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "natibo", cfg.App.Name)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.UsesDatabase())
	assert.True(t, cfg.Redis.Disabled)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, []string{"*"}, cfg.HTTP.AllowedOrigins)
	assert.Empty(t, cfg.HTTP.APIKeyHashes)
	assert.Equal(t, 10, cfg.Study.SentencesPerDay)
	assert.Equal(t, "5/3/2/1/1", cfg.Study.ReviewPattern)
	assert.Equal(t, "@every 5m", cfg.Scheduler.AdvanceSchedule)
	assert.Equal(t, time.UTC.String(), cfg.App.Location.String())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/natibo")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("HTTP_API_KEY_HASHES", " $2a$10$abc , ,$2a$10$def")
	t.Setenv("HTTP_RATE_LIMIT_PER_SECOND", "2.5")
	t.Setenv("REDIS_DISABLED", "false")
	t.Setenv("STUDY_PAUSE", "1500ms")
	t.Setenv("SCHEDULER_ADVANCE_SCHEDULE", "0 3 * * *")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.UsesDatabase())
	assert.False(t, cfg.Redis.Disabled)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, []string{"$2a$10$abc", "$2a$10$def"}, cfg.HTTP.APIKeyHashes)
	assert.Equal(t, 2.5, cfg.HTTP.RateLimitPerSecond)
	assert.Equal(t, 1500*time.Millisecond, cfg.Study.Pause)
	assert.Equal(t, "0 3 * * *", cfg.Scheduler.AdvanceSchedule)
}

func TestFromEnv_BuildsURLFromParts(t *testing.T) {
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "natibo")
	t.Setenv("DB_PASSWORD", "secret")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "postgres://natibo:secret@db:5432/natibo?sslmode=disable", cfg.Database.URL)
}

func TestFromEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("HTTP_PORT", "not-a-number")
	t.Setenv("STUDY_PAUSE", "soon")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, time.Second, cfg.Study.Pause)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad timezone", map[string]string{"APP_TIMEZONE": "Mars/Olympus"}, "APP_TIMEZONE"},
		{"production without database", map[string]string{"APP_ENV": "production"}, "DATABASE_URL"},
		{"port out of range", map[string]string{"HTTP_PORT": "70000"}, "HTTP_PORT"},
		{"zero sentences", map[string]string{"STUDY_SENTENCES_PER_DAY": "0"}, "STUDY_SENTENCES_PER_DAY"},
		{"negative pause", map[string]string{"STUDY_PAUSE": "-1s"}, "STUDY_PAUSE"},
		{"blank schedule", map[string]string{"SCHEDULER_ADVANCE_SCHEDULE": " "}, "SCHEDULER_ADVANCE_SCHEDULE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
