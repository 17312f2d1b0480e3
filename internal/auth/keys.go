package auth

import (
	"crypto/subtle"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"election-insights/pkg/logging"
)

// EnvKeyName is the name reported for the key taken from UPDATE_API_KEY.
const EnvKeyName = "env"

// KeyResolver maps API keys to the name of their holder. Keys come from a
// YAML file of `key: name` pairs and, optionally, one key from the environment.
type KeyResolver struct {
	mu       sync.RWMutex
	keys     map[string]string
	envKey   string
	yamlPath string
	log      *logging.ComponentLogger
}

// NewKeyResolver loads yamlPath if it exists. A missing file is not an error:
// the resolver then only knows envKey, and rejects everything when both are empty.
func NewKeyResolver(yamlPath, envKey string, logger *logging.Logger) *KeyResolver {
	if logger == nil {
		logger = logging.Nop()
	}
	r := &KeyResolver{
		keys:     make(map[string]string),
		envKey:   strings.TrimSpace(envKey),
		yamlPath: yamlPath,
		log:      logger.WithComponent("auth"),
	}

	if yamlPath == "" {
		return r
	}
	if err := r.loadConfig(yamlPath); err != nil {
		if os.IsNotExist(err) {
			r.log.Info("api key file not found, using UPDATE_API_KEY only", logging.String("path", yamlPath))
		} else {
			r.log.Error("api key file not loaded", err, logging.String("path", yamlPath))
		}
	} else {
		r.log.Info("loaded api keys", logging.String("path", yamlPath), logging.Int("entries", r.Len()))
	}
	return r
}

// loadConfig replaces the file keys with the contents of path.
func (r *KeyResolver) loadConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var config map[string]string
	if err := yaml.Unmarshal(data, &config); err != nil {
		return err
	}

	keys := make(map[string]string, len(config))
	for k, name := range config {
		if k = strings.TrimSpace(k); k != "" {
			keys[k] = name
		}
	}

	r.mu.Lock()
	r.keys = keys
	r.mu.Unlock()
	return nil
}

// Reload rereads the key file from disk.
func (r *KeyResolver) Reload() error {
	if r.yamlPath == "" {
		return nil
	}
	return r.loadConfig(r.yamlPath)
}

// SetEnvKey replaces the environment key, e.g. after a config reload.
func (r *KeyResolver) SetEnvKey(key string) {
	r.mu.Lock()
	r.envKey = strings.TrimSpace(key)
	r.mu.Unlock()
}

// Enabled reports whether any key is configured.
func (r *KeyResolver) Enabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.envKey != "" || len(r.keys) > 0
}

// Len is the number of keys loaded from the file.
func (r *KeyResolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.keys)
}

// Resolve returns the holder of key.
func (r *KeyResolver) Resolve(key string) (string, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.envKey != "" && subtle.ConstantTimeCompare([]byte(key), []byte(r.envKey)) == 1 {
		return EnvKeyName, true
	}
	name, ok := r.keys[key]
	return name, ok
}

// ClientIP extracts the real client IP from the request, honouring
// X-Forwarded-For and X-Real-IP set by a reverse proxy.
func ClientIP(req *http.Request) string {
	if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := parseFirstIP(xff); ip != "" {
			return ip
		}
	}

	if xri := req.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return ip
}

// parseFirstIP extracts the first IP from a comma-separated list
func parseFirstIP(xff string) string {
	first, _, _ := strings.Cut(xff, ",")
	return strings.TrimSpace(first)
}
