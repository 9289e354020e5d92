package utils

import (
	"os"
	"strings"

	"github.com/spf13/cast"
)

func GetEnv(key string) string {
	v, _ := LookupEnv(key)
	return v
}

func GetBoolEnv(key string) bool {
	v, _ := cast.ToBoolE(strings.TrimSpace(GetEnv(key)))
	return v
}

func GetIntEnv(key string) int64 {
	v, _ := cast.ToInt64E(strings.TrimSpace(GetEnv(key)))
	return v
}

// LookupEnv reads key from the process environment, falling back to ./.env
func LookupEnv(key string) (value string, found bool) {
	key = strings.ToUpper(key)
	if v, ok := os.LookupEnv(key); ok {
		return v, true
	}
	data, err := os.ReadFile(".env")
	if err != nil {
		return "", false
	}
	for k, v := range parseEnv(data) {
		if strings.ToUpper(k) == key {
			return v, true
		}
	}
	return "", false
}

// LoadEnv Load .env file based on environment
func LoadEnv(env string) error {
	envFile := ".env"
	if env != "" {
		envFile = ".env." + env
	}
	data, err := os.ReadFile(envFile)
	if err != nil {
		return err
	}
	for k, v := range parseEnv(data) {
		// 已存在的环境变量优先
		if _, ok := os.LookupEnv(k); !ok {
			os.Setenv(k, v)
		}
	}
	return nil
}

func parseEnv(data []byte) map[string]string {
	vals := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		vals[strings.TrimSpace(parts[0])] = strings.Trim(strings.TrimSpace(parts[1]), `"'`)
	}
	return vals
}
