package env

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

var (
	mu          sync.Mutex
	validations = map[string]string{}
	validate    = validator.New()
)

// RegisterValidation registers validation tags for an environment variable.
// Variables are checked when ValidateEnv is called, typically at server startup.
func RegisterValidation(key string, tags ...string) {
	mu.Lock()
	defer mu.Unlock()
	existing := validations[key]
	for _, tag := range tags {
		if existing == "" {
			existing = tag
			continue
		}
		existing = existing + "," + tag
	}
	validations[key] = existing
}

// ValidateEnv checks every registered variable against its validation tags
// and panics if any fails. Call after defaults and config files are loaded.
func ValidateEnv() {
	mu.Lock()
	defer mu.Unlock()
	for key, tags := range validations {
		if err := validate.Var(viper.Get(key), tags); err != nil {
			panic(fmt.Sprintf("env: %s failed validation '%s': %s", key, tags, err))
		}
	}
}

func GetString(key string) string { return viper.GetString(key) }

func GetInt(key string) int { return viper.GetInt(key) }

func GetFloat64(key string) float64 { return viper.GetFloat64(key) }
