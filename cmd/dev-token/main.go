// server/cmd/dev-token/main.go

// Command dev-token signs a Supabase-shaped access token with SUPABASE_JWT_SECRET for local testing
// of the admin and pharmacy routes.
package main

import (
	"fmt"
	"log"
	"strings"
	"time"

	"mediradar-api-server/config"
	"mediradar-api-server/internal/auth"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
)

func main() {
	id := flag.String("id", "00000000-0000-0000-0000-000000000001", "user id (token subject)")
	email := flag.String("email", "dev@example.com", "user email")
	roles := flag.StringSlice("roles", nil, "app_metadata roles, e.g. --roles admin")
	pharmacy := flag.String("pharmacy-name", "", "user_metadata.pharmacy_name")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.LoadConfig("./config")
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}

	u := &auth.User{ID: *id, Email: *email, AppMetadata: map[string]any{}, UserMetadata: map[string]any{}}
	if len(*roles) > 0 {
		u.AppMetadata["roles"] = *roles
	}
	if name := strings.TrimSpace(*pharmacy); name != "" {
		u.UserMetadata["pharmacy_name"] = name
	}

	token, err := auth.IssueToken(cfg.Supabase.JWTSecret, u, *ttl)
	if err != nil {
		log.Fatalf("Could not sign token: %v", err)
	}
	fmt.Println(token)
}
