// Package secrets overlays configuration secrets read from HashiCorp Vault.
package secrets

import (
	"context"
	"fmt"

	vault "github.com/hashicorp/vault/api"

	"github.com/grabpic/grabpic-api/internal/config"
	"github.com/grabpic/grabpic-api/pkg/logger"
)

// Keys read from the KV v2 secret.
const (
	KeyStorageSecret   = "storage_secret_key"
	KeyJWTSecret       = "jwt_secret"
	KeyJWTPublicKey    = "jwt_public_key_pem"
	KeyTurnstileSecret = "turnstile_secret_key"
	KeyDatabasePass    = "database_password"
	KeyRedisPassword   = "redis_password"
)

// LoadFromVault reads cfg.Vault.SecretPath and overrides the secrets it finds in cfg.
// It is a no-op when Vault is disabled. Missing keys leave the configured value in place.
func LoadFromVault(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	if !cfg.Vault.Enabled {
		return nil
	}
	log = log.WithComponent("VaultLoader")

	vaultCfg := vault.DefaultConfig()
	if cfg.Vault.Address != "" {
		vaultCfg.Address = cfg.Vault.Address
	}
	client, err := vault.NewClient(vaultCfg)
	if err != nil {
		return fmt.Errorf("failed to create vault client: %w", err)
	}
	if cfg.Vault.Token != "" {
		client.SetToken(cfg.Vault.Token)
	}

	secret, err := client.Logical().ReadWithContext(ctx, cfg.Vault.SecretPath)
	if err != nil {
		return fmt.Errorf("failed to read vault secret %s: %w", cfg.Vault.SecretPath, err)
	}
	if secret == nil || secret.Data == nil {
		return fmt.Errorf("vault secret %s not found", cfg.Vault.SecretPath)
	}

	// KV v2 nests the payload under "data".
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		data = secret.Data
	}

	applied := 0
	set := func(key string, dst *string) {
		if v, ok := data[key].(string); ok && v != "" {
			*dst = v
			applied++
		}
	}
	set(KeyStorageSecret, &cfg.Storage.SecretKey)
	set(KeyJWTSecret, &cfg.JWT.Secret)
	set(KeyJWTPublicKey, &cfg.JWT.PublicKeyPEM)
	set(KeyTurnstileSecret, &cfg.Turnstile.SecretKey)
	set(KeyDatabasePass, &cfg.Database.Password)
	set(KeyRedisPassword, &cfg.Redis.Password)

	log.Info(ctx, "Loaded secrets from vault",
		logger.String("path", cfg.Vault.SecretPath),
		logger.Int("applied", applied),
	)
	return nil
}
