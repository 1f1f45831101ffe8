// Command token issues development bearer tokens and service key hashes.
// Production tokens come from the identity provider.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/gravadigital/urna-api/internal/auth"
	"github.com/gravadigital/urna-api/internal/config"
	"github.com/gravadigital/urna-api/internal/domain/session"
	"github.com/gravadigital/urna-api/internal/logger"
)

func main() {
	cfg := config.Load()
	logger.Initialize(cfg.Log.Level)
	log := logger.Get()

	subject := flag.String("sub", "", "User id (random when empty)")
	role := flag.String("role", "voter", "voter, committee or admin")
	email := flag.String("email", "", "Email claim")
	ttl := flag.Duration("ttl", 12*time.Hour, "Token lifetime")
	hashKey := flag.String("hash-key", "", "Print the SERVICE_KEY_HASH for this key and exit")
	flag.Parse()

	if *hashKey != "" {
		hash, err := auth.HashServiceKey(*hashKey)
		if err != nil {
			log.Error("Failed to hash service key", "error", err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	if cfg.Auth.JWTSecret == "" {
		log.Error("AUTH_JWT_SECRET is required")
		os.Exit(1)
	}
	if cfg.IsProduction() {
		log.Error("Refusing to issue tokens in production")
		os.Exit(1)
	}

	userID := uuid.New()
	if *subject != "" {
		parsed, err := uuid.Parse(*subject)
		if err != nil {
			log.Error("Invalid subject", "error", err)
			os.Exit(1)
		}
		userID = parsed
	}

	r, err := session.ParseRole(*role)
	if err != nil {
		log.Error("Invalid role", "error", err)
		os.Exit(1)
	}

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience)
	token, err := verifier.Issue(userID, r, *email, *ttl)
	if err != nil {
		log.Error("Failed to sign token", "error", err)
		os.Exit(1)
	}

	log.Info("Token issued", "sub", userID, "role", r, "expires_in", *ttl)
	fmt.Println(token)
}
