package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	ServerAddr  string
	JWTSecret   string
}

// Load reads configuration from the environment, with an optional .env file
// for local development.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	serverAddr := os.Getenv("SERVER_ADDR")
	if serverAddr == "" {
		serverAddr = ":8080"
	}

	return Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		ServerAddr:  serverAddr,
		JWTSecret:   os.Getenv("JWT_SECRET"),
	}
}
