package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/waifubot/backend/internal/infrastructure/auth"
	"github.com/waifubot/backend/internal/infrastructure/config"
	"github.com/waifubot/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]

	fs := flag.NewFlagSet(command, flag.ExitOnError)
	gateway := fs.String("gateway", "", "Gateway name carried in the token, e.g. telegram")
	jti := fs.String("jti", "", "Token id to revoke")
	ttl := fs.Duration("ttl", 0, "How long the revocation is kept (default: token lifetime)")
	_ = fs.Parse(os.Args[2:])

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(config.LogConfig{Level: cfg.Log.Level, Format: "console", Output: "stderr"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	jwtService := auth.NewJWTService(cfg.JWT)
	if *ttl == 0 {
		*ttl = jwtService.GetTokenExpiration()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch command {
	case "issue":
		token, err := jwtService.GenerateToken(*gateway)
		if err != nil {
			log.Fatal("Failed to issue token", zap.String("gateway", *gateway), zap.Error(err))
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(token); err != nil {
			log.Fatal("Failed to write token", zap.Error(err))
		}
		log.Info("Gateway token issued", zap.String("gateway", *gateway), zap.Time("expires_at", token.ExpiresAt))

	case "revoke":
		if *jti == "" {
			log.Fatal("-jti is required")
		}
		list := revocationList(cfg.Redis, log)
		if err := list.Revoke(ctx, *jti, *ttl); err != nil {
			log.Fatal("Failed to revoke token", zap.Error(err))
		}
		log.Info("Token revoked", zap.String("jti", *jti), zap.Duration("ttl", *ttl))

	case "revoke-gateway":
		if *gateway == "" {
			log.Fatal("-gateway is required")
		}
		list := revocationList(cfg.Redis, log)
		if err := list.RevokeGateway(ctx, *gateway, *ttl); err != nil {
			log.Fatal("Failed to revoke gateway tokens", zap.Error(err))
		}
		log.Info("Every token issued to gateway so far is revoked", zap.String("gateway", *gateway))

	default:
		printUsage()
		os.Exit(1)
	}
}

// revocationList needs Redis: an in-memory list would be invisible to the API servers
func revocationList(cfg config.RedisConfig, log *zap.Logger) *auth.RedisRevocationList {
	if !cfg.Enabled {
		log.Fatal("Revocation requires Redis; set WAIFU_REDIS_ENABLED=true")
	}
	list, err := auth.NewRedisRevocationList(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	return list
}

func printUsage() {
	fmt.Println(`Gateway token administration

Usage:
  gatewaytoken issue -gateway <name>
  gatewaytoken revoke -jti <id> [-ttl 24h]
  gatewaytoken revoke-gateway -gateway <name> [-ttl 24h]

Signing settings come from WAIFU_JWT_* environment variables or config.toml.`)
}
