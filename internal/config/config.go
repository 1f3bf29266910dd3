package config

import (
	"os"
)

type Config struct {
	BotToken   string
	PublicKey  string
	ListenAddr string
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	SQLitePath string
	DiscordAPI string
	GinMode    string
	BootResync bool
}

func Load() *Config {
	return &Config{
		BotToken:   getEnv("DISCORD_TOKEN", ""),
		PublicKey:  getEnv("DISCORD_PUBLIC_KEY", ""),
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		DBDriver:   getEnv("DB_DRIVER", "sqlite"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "taskbot"),
		DBPassword: getEnv("DB_PASSWORD", "taskbot"),
		DBName:     getEnv("DB_NAME", "taskbot"),
		SQLitePath: getEnv("SQLITE_PATH", "tasks.db"),
		DiscordAPI: getEnv("DISCORD_API_BASE", ""),
		GinMode:    getEnv("GIN_MODE", "debug"),
		BootResync: getEnv("RESYNC_ON_START", "false") == "true",
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
