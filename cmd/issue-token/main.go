package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/stemsi/prepwise-backend/internal/config"
	"github.com/stemsi/prepwise-backend/internal/logger"
	"github.com/stemsi/prepwise-backend/internal/service"
	"golang.org/x/term"
)

// issue-token mints a candidate JWT for local development and load testing.
// Accounts live in the upstream identity service; this only signs claims.
func main() {
	userID := flag.Int("user", 0, "candidate user ID (required)")
	name := flag.String("name", "", "display name embedded in the token")
	ttl := flag.Duration("ttl", 0, "token lifetime, defaults to JWT_EXPIRY_HOURS")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if *userID <= 0 {
		fmt.Fprintln(os.Stderr, "Error: -user is required")
		flag.Usage()
		os.Exit(2)
	}

	if os.Getenv("JWT_SECRET") == "" {
		secret, err := promptSecret()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read signing secret")
		}
		cfg.JWTSecret = secret
	}
	if *ttl > 0 {
		cfg.JWTExpiry = *ttl
	}

	token, err := service.NewAuthService(cfg).GenerateToken(*userID, *name)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to issue token")
	}

	log.Info().
		Int("user_id", *userID).
		Time("expires_at", time.Now().Add(cfg.JWTExpiry)).
		Msg("Token issued")
	fmt.Println(token)
}

// promptSecret reads the signing secret without echoing it.
func promptSecret() (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("JWT_SECRET is not set and stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, "JWT secret: ")
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	secret := strings.TrimSpace(string(b))
	if secret == "" {
		return "", fmt.Errorf("secret must not be empty")
	}
	return secret, nil
}
