package config

import (
	"os"
	"strconv"
)

type Config struct {
	Env         string
	Port        int
	PostgresDSN string
	JWTSecret   string
	AdminEmail  string
	StorePhone  string
	LogJSON     bool
}

func Default() Config {
	return Config{
		Env:        "dev",
		Port:       3001,
		JWTSecret:  "",
		AdminEmail: "",
		StorePhone: "5582988478510",
		LogJSON:    true,
	}
}

func EnvDefaults() Config {
	return fromEnv(Default())
}

func fromEnv(c Config) Config {
	if v := os.Getenv("LOJA_ENV"); v != "" {
		c.Env = v
	}
	if v := os.Getenv("LOJA_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := os.Getenv("LOJA_POSTGRES_DSN"); v != "" {
		c.PostgresDSN = v
	}
	if v := os.Getenv("LOJA_JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := os.Getenv("LOJA_ADMIN_EMAIL"); v != "" {
		c.AdminEmail = v
	}
	if v := os.Getenv("LOJA_STORE_PHONE"); v != "" {
		c.StorePhone = v
	}
	if v := os.Getenv("LOJA_LOG_JSON"); v != "" {
		switch v {
		case "1", "true", "TRUE":
			c.LogJSON = true
		case "0", "false", "FALSE":
			c.LogJSON = false
		}
	}
	return c
}
