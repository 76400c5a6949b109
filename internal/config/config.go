// Package config loads the worker's runtime environment: the control
// endpoint address and the function metadata Lambda publishes through
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/pflag"
)

// Standard Lambda environment variable names.
const (
	EnvRuntimeAPI      = "AWS_LAMBDA_RUNTIME_API"
	EnvFunctionName    = "AWS_LAMBDA_FUNCTION_NAME"
	EnvFunctionVersion = "AWS_LAMBDA_FUNCTION_VERSION"
	EnvFunctionMemory  = "AWS_LAMBDA_FUNCTION_MEMORY_SIZE"
	EnvHandler         = "_HANDLER"
)

// Config holds the worker's runtime environment
type Config struct {
	// Endpoint is the host:port of the runtime API control endpoint.
	Endpoint string

	// Function metadata from the execution environment.
	FunctionName    string
	FunctionVersion string
	MemoryMB        int
	Handler         string

	// Logging
	Verbose bool
	Debug   bool
}

// LoadFromEnv creates a Config from the standard Lambda environment.
func LoadFromEnv() (*Config, error) {
	config := &Config{
		Endpoint:        os.Getenv(EnvRuntimeAPI),
		FunctionName:    os.Getenv(EnvFunctionName),
		FunctionVersion: os.Getenv(EnvFunctionVersion),
		Handler:         os.Getenv(EnvHandler),
	}

	if raw := os.Getenv(EnvFunctionMemory); raw != "" {
		memory, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q: %w", EnvFunctionMemory, raw, err)
		}
		config.MemoryMB = memory
	}

	return config, nil
}

// LoadFromFlags creates a Config from the environment with flag overrides,
// used when running a worker locally against the emulator.
func LoadFromFlags(flags *pflag.FlagSet) (*Config, error) {
	config, err := LoadFromEnv()
	if err != nil {
		return nil, err
	}

	if flag := flags.Lookup("endpoint"); flag != nil && flag.Changed {
		config.Endpoint = flag.Value.String()
	}
	if config.Verbose, err = flags.GetBool("verbose"); err != nil {
		return nil, err
	}
	if config.Debug, err = flags.GetBool("debug"); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("runtime API endpoint not set: export %s or pass --endpoint", EnvRuntimeAPI)
	}
	return nil
}
