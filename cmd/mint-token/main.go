// Command mint-token issues a caller JWT for the tool routes when
// TOOLS_AUTH_ENABLED is set.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	jwttoken "pmkisan/internal/jwt_token"
	"pmkisan/internal/platform/config"
)

func main() {
	caller := flag.String("caller", "agent-runtime", "caller name recorded in the token")
	session := flag.String("session", "", "optional session id")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.Server.JWTSigningKey == "" {
		fmt.Fprintln(os.Stderr, "TOOLS_JWT_SIGNING_KEY is not set")
		os.Exit(1)
	}

	jwt := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
	token, err := jwt.GenerateToken(*caller, *session, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}
