package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresMongoURL(t *testing.T) {
	t.Setenv("MONGO_URL", "")
	t.Setenv("API_SECRET_KEY", "secret")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONGO_URL")
}

func TestLoadRequiresAPISecretKey(t *testing.T) {
	t.Setenv("MONGO_URL", "mongodb://localhost:27017")
	t.Setenv("API_SECRET_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API_SECRET_KEY")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MONGO_URL", "mongodb://localhost:27017")
	t.Setenv("API_SECRET_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memobox", cfg.MongoDatabase)
	assert.Equal(t, "https://memobox.tech/", cfg.BackendURL)
	assert.Equal(t, []string{"en", "ru"}, cfg.Languages)
	assert.Equal(t, 2*time.Minute, cfg.DueHorizon)
	assert.Equal(t, 4*time.Hour, cfg.EmailAdvance)
	assert.Equal(t, 2*time.Hour, cfg.PushAdvance)
	assert.Equal(t, time.Duration(0), cfg.TickInterval)
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MONGO_URL", "mongodb://localhost:27017")
	t.Setenv("API_SECRET_KEY", "secret")
	t.Setenv("NOTIFICATION_LANGUAGES", "en, ru, de")
	t.Setenv("EMAIL_ADVANCE_HOURS", "6")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"en", "ru", "de"}, cfg.Languages)
	assert.Equal(t, 6*time.Hour, cfg.EmailAdvance)
	assert.True(t, cfg.IsProduction())
}

func TestSendGridDataResolvesLanguage(t *testing.T) {
	t.Setenv("SEND_GRID_DATA_RU_TRAINING", `{"name":"Memobox","email":"just@memobox.tech","templateId":"d-ru","subject":"Тренировка"}`)

	cfg := &Config{}
	data, err := cfg.SendGridData("ru", "TRAINING")
	require.NoError(t, err)

	assert.Equal(t, "Memobox", data.Name)
	assert.Equal(t, "just@memobox.tech", data.Email)
	assert.Equal(t, "d-ru", data.TemplateID)
	assert.Equal(t, "Тренировка", data.Subject)
}

func TestSendGridDataFallsBackToEnglish(t *testing.T) {
	t.Setenv("SEND_GRID_DATA_EN_TRAINING", `{"name":"Memobox","email":"just@memobox.tech","templateId":"d-en","subject":"Training"}`)
	t.Setenv("SEND_GRID_DATA_DE_TRAINING", "")

	cfg := &Config{}
	data, err := cfg.SendGridData("de", "TRAINING")
	require.NoError(t, err)
	assert.Equal(t, "d-en", data.TemplateID)
}

func TestSendGridDataMissingEnglishFallbackIsFatal(t *testing.T) {
	t.Setenv("SEND_GRID_DATA_EN_WELCOME", "")
	t.Setenv("SEND_GRID_DATA_RU_WELCOME", "")

	cfg := &Config{}
	_, err := cfg.SendGridData("ru", "WELCOME")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no en fallback")
}

func TestSendGridDataRejectsMalformedJSON(t *testing.T) {
	t.Setenv("SEND_GRID_DATA_EN_TRAINING", `{broken`)

	cfg := &Config{}
	_, err := cfg.SendGridData("en", "TRAINING")
	require.Error(t, err)
}
