package config

import (
	"log"
	"os/exec"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	viper "github.com/spf13/viper"
)

var configSingleton *ConfigSingleTon
var muonce sync.Once

type ConfigSingleTon struct {
	Config *Config
	mu     sync.RWMutex
}

type Config struct {
	DBName        string `mapstructure:"POSTGRES_DB"`
	DBHost        string `mapstructure:"POSTGRES_HOST"`
	DBPort        string `mapstructure:"POSTGRES_PORT"`
	DBUser        string `mapstructure:"POSTGRES_USER"`
	DBPassword    string `mapstructure:"POSTGRES_PASSWORD"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	KafkaBrokers  string `mapstructure:"KAFKA_BROKERS"`
	NoticeTopic   string `mapstructure:"NOTICE_TOPIC"`
	CacheTTLSec   int    `mapstructure:"PRODUCT_CACHE_TTL_SEC"`
}

// BrokerList splits the comma separated KAFKA_BROKERS value.
func (c *Config) BrokerList() []string {
	if c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func GetConfig() *Config {
	initConfig()
	configSingleton.mu.RLock()
	defer configSingleton.mu.RUnlock()
	return configSingleton.Config
}

func initConfig() {
	if configSingleton == nil {
		muonce.Do(func() {
			configSingleton = &ConfigSingleTon{}
			if cf, err := loadConfig(); err == nil {
				configSingleton.Config = cf
			} else {
				log.Fatal("error read cartengine config")
			}
			viper.WatchConfig()
			viper.OnConfigChange(func(e fsnotify.Event) {
				if cf, err := loadConfig(); err == nil {
					configSingleton.mu.Lock()
					configSingleton.Config = cf
					configSingleton.mu.Unlock()
				} else {
					log.Panic("failed to reload config file")
				}
			})
		})
	}
}

// loadConfig only returns the error; the caller decides whether it is
// fatal, env vars may be a sufficient fallback.
func loadConfig() (cf *Config, err error) {
	cf = &Config{}
	viper.SetConfigFile(getProjectRoot("github.com/RoyceAzure/lab/cartengine") + "/.env")
	viper.AutomaticEnv()

	for _, key := range []string{
		"POSTGRES_DB", "POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_USER", "POSTGRES_PASSWORD",
		"REDIS_ADDR", "REDIS_PASSWORD", "KAFKA_BROKERS", "NOTICE_TOPIC", "PRODUCT_CACHE_TTL_SEC",
	} {
		if err = viper.BindEnv(key); err != nil {
			return
		}
	}

	// the .env file is optional, env vars alone are a valid setup
	_ = viper.ReadInConfig()

	err = viper.Unmarshal(cf)
	return
}

func getProjectRoot(moduleName string) string {
	cmd := exec.Command("go", "list", "-m", "-f", "{{.Dir}}", moduleName)
	output, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}
