package configuration

import (
	"os"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/nasir19noor/aws-cdk/errors"
)

const (
	packageName = "configuration"
)

// Config holds the application configuration
type Config struct {
	StackName     string
	StackFilePath string
	AWSRegion     string
	AcessKeyID    string
	AccessSecret  string
	LocalstackURL string
	LogLevel      string
	MaxRetries    int
	RetryDelay    int
	ApplyTimeout  int
	Destroy       bool
}

// Initialize sets up the configuration system
func Initialize() (*Config, error) {
	logger := zap.L().With(
		zap.String("package", packageName),
		zap.String("function", "Initialize"),
	)

	// Set default values
	viper.SetDefault("STACK_NAME", "InfrastructureStack")
	viper.SetDefault("STACK_FILE", "")
	viper.SetDefault("AWS_REGION", "us-east-1")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_RETRIES", 30)
	viper.SetDefault("RETRY_DELAY_SECONDS", 5)
	viper.SetDefault("APPLY_TIMEOUT_MINUTES", 20)
	viper.SetDefault("DESTROY", false)

	// Configure Viper to read from environment
	viper.AutomaticEnv()

	// Read from .env file. A missing file surfaces as a path error rather
	// than viper's not-found type because the path is set explicitly.
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	if err := viper.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound && !os.IsNotExist(err) {
			return nil, errors.New(errors.ErrConfigParse, "error reading config file",
				map[string]interface{}{
					"config_file": ".env",
				}, err)
		}
		logger.Info("No .env file found, using environment variables and defaults",
			zap.String("operation", "config_loading"),
		)
	}

	// Validate stack name
	stackName := viper.GetString("STACK_NAME")
	if stackName == "" {
		return nil, errors.New(errors.ErrConfigInvalid, "invalid STACK_NAME",
			map[string]interface{}{
				"config_key": "STACK_NAME",
			}, nil)
	}
	logger.Info("Stack name configured",
		zap.String("stack_name", stackName),
		zap.String("operation", "config_validation"),
	)

	// Validate retry settings
	maxRetries := viper.GetInt("MAX_RETRIES")
	if maxRetries < 0 {
		return nil, errors.New(errors.ErrConfigInvalid, "invalid MAX_RETRIES",
			map[string]interface{}{
				"config_key": "MAX_RETRIES",
				"value":      maxRetries,
			}, nil)
	}

	retryDelay := viper.GetInt("RETRY_DELAY_SECONDS")
	if retryDelay <= 0 {
		return nil, errors.New(errors.ErrConfigInvalid, "invalid RETRY_DELAY_SECONDS",
			map[string]interface{}{
				"config_key": "RETRY_DELAY_SECONDS",
				"value":      retryDelay,
			}, nil)
	}

	applyTimeout := viper.GetInt("APPLY_TIMEOUT_MINUTES")
	if applyTimeout <= 0 {
		return nil, errors.New(errors.ErrConfigInvalid, "invalid APPLY_TIMEOUT_MINUTES",
			map[string]interface{}{
				"config_key": "APPLY_TIMEOUT_MINUTES",
				"value":      applyTimeout,
			}, nil)
	}
	logger.Info("Apply settings configured",
		zap.Int("max_retries", maxRetries),
		zap.Int("retry_delay_seconds", retryDelay),
		zap.Int("apply_timeout_minutes", applyTimeout),
		zap.String("operation", "config_validation"),
	)

	config := &Config{
		StackName:     stackName,
		StackFilePath: viper.GetString("STACK_FILE"),
		AWSRegion:     viper.GetString("AWS_REGION"),
		AccessSecret:  viper.GetString("AWS_SECRET_ACCESS_KEY"),
		AcessKeyID:    viper.GetString("AWS_ACCESS_KEY_ID"),
		LocalstackURL: viper.GetString("LOCALSTACK_URL"),
		LogLevel:      viper.GetString("LOG_LEVEL"),
		MaxRetries:    maxRetries,
		RetryDelay:    retryDelay,
		ApplyTimeout:  applyTimeout,
		Destroy:       viper.GetBool("DESTROY"),
	}

	logger.Info("Configuration loaded successfully",
		zap.String("operation", "config_complete"),
	)
	return config, nil
}
