package secret

import (
	"context"
	"fmt"
	"os"
)

// EnvSource resolves "env://VAR" references from the process
// environment.
type EnvSource struct{}

// NewEnvSource creates an environment-variable source.
func NewEnvSource() *EnvSource {
	return &EnvSource{}
}

// Get returns the value of the environment variable named by path.
func (s *EnvSource) Get(_ context.Context, path string) (string, error) {
	val, ok := os.LookupEnv(path)
	if !ok {
		return "", fmt.Errorf("environment variable %q not set", path)
	}
	return val, nil
}

// Close is a no-op for the environment source.
func (s *EnvSource) Close() error { return nil }
