// Command devtoken mints a bearer token for calling the API in local development.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"example.com/fitnesstracker/internal/auth"
	"example.com/fitnesstracker/internal/config"
)

func main() {
	subject := flag.String("sub", "dev-user", "token subject; each subject owns one ledger")
	tenant := flag.String("tenant", "dev-tenant", "tenant id")
	scopes := flag.String("scopes", auth.ScopeActivitiesRead+" "+auth.ScopeActivitiesWrite, "space separated scopes")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	scopeSet := make(map[string]struct{})
	for _, scope := range strings.Fields(*scopes) {
		scopeSet[scope] = struct{}{}
	}

	token, err := auth.Sign(auth.Claims{
		Subject:   *subject,
		TenantID:  *tenant,
		Scopes:    scopeSet,
		ExpiresAt: time.Now().Add(*ttl),
	}, auth.Config{Secret: cfg.Auth.JWTSecret, Issuer: cfg.Auth.JWTIssuer})
	if err != nil {
		slog.Error("failed to sign token", slog.Any("error", err))
		os.Exit(1)
	}
	fmt.Println(token)
}
