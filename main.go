package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nasir19noor/aws-cdk/awsd"
	"github.com/nasir19noor/aws-cdk/awsd/models"
	"github.com/nasir19noor/aws-cdk/configuration"
	"github.com/nasir19noor/aws-cdk/logger"
	"github.com/nasir19noor/aws-cdk/provisioner"
	"github.com/nasir19noor/aws-cdk/stack"
)

const (
	packageName = "main"
)

func main() {
	// Initialize logger
	if err := logger.Initialize("info"); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	log := zap.L().With(zap.String("package", packageName))

	// Load configuration
	config, err := configuration.Initialize()
	if err != nil {
		log.Error("Failed to load configuration",
			zap.String("operation", "config_load"),
			zap.Error(err),
		)
		os.Exit(1)
	}

	// Re-initialize at the configured level when it differs from the default
	if config.LogLevel != "info" {
		if err := logger.Initialize(config.LogLevel); err != nil {
			log.Error("Failed to apply configured log level",
				zap.String("operation", "logger_init"),
				zap.Error(err),
			)
			os.Exit(1)
		}
		log = zap.L().With(zap.String("package", packageName))
	}

	// Load the stack declaration
	st, err := loadStack(config)
	if err != nil {
		log.Error("Failed to load stack declaration",
			zap.String("operation", "stack_load"),
			zap.Error(err),
		)
		os.Exit(1)
	}

	// Create AWS client
	awsClient, err := awsd.NewAWSClient(config)
	if err != nil {
		log.Error("Failed to create AWS client",
			zap.String("operation", "aws_client_creation"),
			zap.Error(err),
		)
		os.Exit(1)
	}

	// Create the provisioning service
	service := provisioner.NewService(awsClient, config, log)

	// Create context with the apply deadline
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(config.ApplyTimeout)*time.Minute)
	defer cancel()

	// Handle OS signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Run the requested operation in a goroutine
	errChan := make(chan error, 1)
	go func() {
		if config.Destroy {
			errChan <- service.Destroy(ctx, st)
			return
		}
		result, err := service.Apply(ctx, st)
		if err == nil {
			printOutputs(st.Name, result.Outputs)
		}
		errChan <- err
	}()

	// Wait for either a signal or completion
	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down",
			zap.String("operation", "shutdown"),
			zap.String("signal", sig.String()),
		)
		cancel()
		// Give some time for cleanup
		time.Sleep(2 * time.Second)
	case err := <-errChan:
		if err != nil {
			log.Error("Provisioner error",
				zap.String("operation", "provision"),
				zap.Error(err),
			)
			os.Exit(1)
		}
	}
}

// loadStack reads the declaration file when one is configured and falls back
// to the built-in default stack otherwise.
func loadStack(config *configuration.Config) (*stack.Stack, error) {
	if config.StackFilePath != "" {
		return stack.ParseStackFile(config.StackFilePath)
	}
	return stack.Default(config.StackName)
}

func printOutputs(stackName string, outputs []models.Output) {
	fmt.Printf("\nOutputs for stack %s:\n", stackName)
	for _, out := range outputs {
		fmt.Printf("  %s = %s\n", out.Name, out.Value)
	}
}
