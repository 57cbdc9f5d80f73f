package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/go-yaml/yaml"
	"github.com/joho/godotenv"

	"github.com/totegamma/where/internal/domain"
)

const DefaultS5BaseURL = "https://where-app.com"

type Config struct {
	Server Server            `yaml:"server"`
	S5     S5                `yaml:"s5"`
	Auth   domain.AuthConfig `yaml:"auth"`
}

type Server struct {
	Listen        string `yaml:"listen"`
	PostgresDsn   string `yaml:"postgresDsn"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisDB       int    `yaml:"redisDB"`
	MemcachedAddr string `yaml:"memcachedAddr"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
}

type S5 struct {
	BaseURL string `yaml:"baseURL"`

	// AdminKey only ever comes from the environment.
	AdminKey string `yaml:"-"`
}

// Load reads the yaml file at path, then applies .env and environment
// overrides. A missing file is not an error; everything can come from the
// environment.
func Load(path string) (Config, error) {
	config := Config{
		Server: Server{Listen: ":8000"},
		S5:     S5{BaseURL: DefaultS5BaseURL},
		Auth:   domain.AuthConfig{Issuer: "where", TokenTTL: 30 * 24 * time.Hour},
	}

	if path != "" {
		file, err := os.Open(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, err
		default:
			defer file.Close()
			err = yaml.NewDecoder(file).Decode(&config)
			if err != nil {
				return Config{}, err
			}
		}
	}

	// .env is optional
	_ = godotenv.Load()

	config.applyEnv(os.Getenv)
	return config, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.S5.BaseURL, "S5_BASE_URL")
	set(&c.S5.AdminKey, "S5_ADMIN_API_KEY")
	set(&c.Auth.Secret, "WHERE_JWT_SECRET")
	set(&c.Server.PostgresDsn, "DATABASE_URL")
	set(&c.Server.RedisAddr, "REDIS_ADDR")
	set(&c.Server.MemcachedAddr, "MEMCACHED_ADDR")

	if c.S5.BaseURL == "" {
		c.S5.BaseURL = DefaultS5BaseURL
	}
}
