package utils

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// LoadConfig reads a .env file (if present) from the given path and wires
// viper so env vars like AEGISX_APP_PORT resolve as app_port.
func LoadConfig(path string) {
	if err := godotenv.Load(strings.TrimSuffix(path, "/") + "/.env"); err != nil {
		logrus.Debugf("[CONFIG] No .env file loaded: %v", err)
	}

	viper.SetEnvPrefix("aegisx")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}
