package configuration

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nasir19noor/aws-cdk/errors"
)

func TestInitializeDefaults(t *testing.T) {
	viper.Reset()

	config, err := Initialize()
	require.NoError(t, err)

	assert.Equal(t, "InfrastructureStack", config.StackName)
	assert.Empty(t, config.StackFilePath)
	assert.Equal(t, "us-east-1", config.AWSRegion)
	assert.Equal(t, "info", config.LogLevel)
	assert.Equal(t, 30, config.MaxRetries)
	assert.Equal(t, 5, config.RetryDelay)
	assert.Equal(t, 20, config.ApplyTimeout)
	assert.False(t, config.Destroy)
}

func TestInitializeFromEnvironment(t *testing.T) {
	viper.Reset()
	t.Setenv("STACK_NAME", "StagingStack")
	t.Setenv("STACK_FILE", "stack.hcl")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("LOCALSTACK_URL", "http://localhost:4566")
	t.Setenv("MAX_RETRIES", "10")
	t.Setenv("RETRY_DELAY_SECONDS", "2")
	t.Setenv("DESTROY", "true")

	config, err := Initialize()
	require.NoError(t, err)

	assert.Equal(t, "StagingStack", config.StackName)
	assert.Equal(t, "stack.hcl", config.StackFilePath)
	assert.Equal(t, "eu-west-1", config.AWSRegion)
	assert.Equal(t, "http://localhost:4566", config.LocalstackURL)
	assert.Equal(t, 10, config.MaxRetries)
	assert.Equal(t, 2, config.RetryDelay)
	assert.True(t, config.Destroy)
}

func TestInitializeValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "empty stack name", key: "STACK_NAME", value: ""},
		{name: "negative max retries", key: "MAX_RETRIES", value: "-1"},
		{name: "zero retry delay", key: "RETRY_DELAY_SECONDS", value: "0"},
		{name: "zero apply timeout", key: "APPLY_TIMEOUT_MINUTES", value: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Setenv(tt.key, tt.value)

			config, err := Initialize()
			require.Error(t, err)
			assert.Nil(t, config)
			assert.True(t, errors.Is(err, errors.ErrConfigInvalid))
		})
	}
}
