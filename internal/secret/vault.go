package secret

import (
	"context"
	"fmt"
	"os"
	"strings"

	vault "github.com/hashicorp/vault/api"
)

// VaultSource resolves "vault://path#key" references from HashiCorp
// Vault. The fragment names the key within the secret's data; when
// omitted it defaults to "value". KV v2 "data" wrappers are unwrapped
// transparently.
type VaultSource struct {
	client *vault.Client
}

// VaultOptions configures the Vault client. An empty Token falls
// through to the VAULT_TOKEN environment variable.
type VaultOptions struct {
	Address string
	Token   string
}

// NewVaultSource creates a Vault source using static token auth.
func NewVaultSource(opts VaultOptions) (*VaultSource, error) {
	cfg := vault.DefaultConfig()
	if opts.Address != "" {
		cfg.Address = opts.Address
	}

	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create vault client: %w", err)
	}

	token := opts.Token
	if token == "" {
		token = os.Getenv("VAULT_TOKEN")
	}
	if token == "" {
		return nil, fmt.Errorf("vault token not configured")
	}
	client.SetToken(token)

	return &VaultSource{client: client}, nil
}

// Get reads the secret at path and returns the value under the
// fragment key.
func (s *VaultSource) Get(ctx context.Context, path string) (string, error) {
	secretPath := path
	key := "value"
	if idx := strings.LastIndex(path, "#"); idx != -1 {
		secretPath = path[:idx]
		key = path[idx+1:]
	}

	secret, err := s.client.Logical().ReadWithContext(ctx, secretPath)
	if err != nil {
		return "", fmt.Errorf("read vault secret %q: %w", secretPath, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("vault secret %q not found", secretPath)
	}

	data := secret.Data
	if v, ok := data["data"]; ok {
		if nested, ok := v.(map[string]interface{}); ok {
			data = nested
		}
	}

	val, ok := data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in vault secret %q", key, secretPath)
	}
	return fmt.Sprintf("%v", val), nil
}

// Close releases the Vault client.
func (s *VaultSource) Close() error { return nil }
