package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Key is an environment variable the API reads a credential from
type Key string

const (
	OpenAIAPIKey        Key = "OPENAI_API_KEY"
	JWTSecret           Key = "JWT_SECRET"
	DBPassword          Key = "DB_PASSWORD"
	RedisPassword       Key = "REDIS_PASSWORD"
	TypesenseAPIKey     Key = "TYPESENSE_API_KEY"
	WhatsAppAccessToken Key = "WHATSAPP_ACCESS_TOKEN"
)

// Known is every credential the overlay exports. Other keys stored at the
// Vault path are ignored.
var Known = []Key{OpenAIAPIKey, JWTSecret, DBPassword, RedisPassword, TypesenseAPIKey, WhatsAppAccessToken}

// Required are the credentials a production deployment must provide.
// config falls back to a development JWT secret and an empty database
// password when they are absent.
var Required = []Key{JWTSecret, DBPassword}

const defaultVaultPath = "setu/api"

// VaultConfig locates the KV secret holding the API credentials
type VaultConfig struct {
	Enabled   bool
	Addr      string
	Token     string
	Namespace string
	Mount     string
	Path      string
	KVVersion int
	Timeout   time.Duration
	// Overwrite replaces credentials already set in the environment
	Overwrite bool
	// MaxRetries bounds retries of transient fetch failures
	MaxRetries uint64
}

// Overlay reports what ApplyVaultSecrets did to the environment
type Overlay struct {
	Enabled  bool
	Path     string
	Exported []Key
	// Kept were already set and not overwritten
	Kept    []Key
	Ignored int
	// Missing are required keys still unset after the overlay
	Missing []Key
}

// LoadVaultConfigFromEnv reads VAULT_* variables. pathOverride wins over VAULT_PATH.
func LoadVaultConfigFromEnv(pathOverride string) VaultConfig {
	cfg := VaultConfig{
		Enabled:    strings.EqualFold(os.Getenv("VAULT_ENABLED"), "true"),
		Addr:       os.Getenv("VAULT_ADDR"),
		Token:      os.Getenv("VAULT_TOKEN"),
		Namespace:  os.Getenv("VAULT_NAMESPACE"),
		Mount:      envOr("VAULT_MOUNT", "secret"),
		Path:       pathOverride,
		KVVersion:  envInt("VAULT_KV_VERSION", 2),
		Timeout:    time.Duration(envInt("VAULT_TIMEOUT_MS", 5000)) * time.Millisecond,
		Overwrite:  strings.EqualFold(os.Getenv("VAULT_OVERWRITE"), "true"),
		MaxRetries: uint64(envInt("VAULT_MAX_RETRIES", 2)),
	}
	if cfg.Path == "" {
		cfg.Path = envOr("VAULT_PATH", defaultVaultPath)
	}
	return cfg
}

// ApplyVaultSecrets exports the Known credentials stored at cfg.Path into the
// environment, ahead of config.Load. With Vault disabled it only reports the
// required keys missing from the environment.
func ApplyVaultSecrets(ctx context.Context, cfg VaultConfig) (Overlay, error) {
	overlay := Overlay{Enabled: cfg.Enabled, Path: cfg.Path}
	if !cfg.Enabled {
		overlay.Missing = missingRequired()
		return overlay, nil
	}
	if cfg.Addr == "" || cfg.Token == "" || cfg.Path == "" {
		overlay.Missing = missingRequired()
		return overlay, errors.New("vault configuration incomplete (VAULT_ADDR, VAULT_TOKEN, VAULT_PATH)")
	}

	values, err := fetch(ctx, cfg)
	if err != nil {
		overlay.Missing = missingRequired()
		return overlay, err
	}

	for _, key := range Known {
		value, ok := values[string(key)]
		if !ok {
			continue
		}
		if !cfg.Overwrite && os.Getenv(string(key)) != "" {
			overlay.Kept = append(overlay.Kept, key)
			continue
		}
		if err := os.Setenv(string(key), value); err != nil {
			return overlay, fmt.Errorf("export %s: %w", key, err)
		}
		overlay.Exported = append(overlay.Exported, key)
	}
	overlay.Ignored = len(values) - len(overlay.Exported) - len(overlay.Kept)
	overlay.Missing = missingRequired()
	return overlay, nil
}

// fetch reads the secret, retrying network errors and 5xx responses
func fetch(ctx context.Context, cfg VaultConfig) (map[string]string, error) {
	url, err := secretURL(cfg)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: cfg.Timeout}

	var values map[string]string
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(200*time.Millisecond),
		backoff.WithMaxInterval(2*time.Second),
	), cfg.MaxRetries), ctx)

	err = backoff.Retry(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("X-Vault-Token", cfg.Token)
		if cfg.Namespace != "" {
			req.Header.Set("X-Vault-Namespace", cfg.Namespace)
		}

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("vault fetch failed: %s", resp.Status)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return backoff.Permanent(fmt.Errorf("vault fetch failed: %s %s", resp.Status, strings.TrimSpace(string(body))))
		}

		values, err = decodeSecret(body, cfg.KVVersion)
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, policy)
	return values, err
}

func secretURL(cfg VaultConfig) (string, error) {
	addr := strings.TrimRight(cfg.Addr, "/")
	mount := strings.Trim(cfg.Mount, "/")
	path := strings.TrimLeft(cfg.Path, "/")
	if addr == "" || mount == "" || path == "" {
		return "", errors.New("vault address, mount, and path must be set")
	}
	if cfg.KVVersion == 1 {
		return fmt.Sprintf("%s/v1/%s/%s", addr, mount, path), nil
	}
	return fmt.Sprintf("%s/v1/%s/data/%s", addr, mount, path), nil
}

// decodeSecret flattens the KV payload to strings. KV v2 nests the secret
// under data.data.
func decodeSecret(body []byte, kvVersion int) (map[string]string, error) {
	var raw map[string]json.RawMessage
	if kvVersion == 1 {
		var payload struct {
			Data map[string]json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("decode vault response: %w", err)
		}
		raw = payload.Data
	} else {
		var payload struct {
			Data struct {
				Data map[string]json.RawMessage `json:"data"`
			} `json:"data"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("decode vault response: %w", err)
		}
		raw = payload.Data.Data
	}
	if raw == nil {
		return nil, fmt.Errorf("vault response missing data for KV v%d", kvVersion)
	}

	values := make(map[string]string, len(raw))
	for key, value := range raw {
		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			values[key] = s
			continue
		}
		// numbers and booleans keep their JSON spelling
		values[key] = string(value)
	}
	return values, nil
}

func missingRequired() []Key {
	var missing []Key
	for _, key := range Required {
		if os.Getenv(string(key)) == "" {
			missing = append(missing, key)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}
