package globals

import (
	"context"
	"os"
)

var JwtSecret = []byte(getEnv("JWT_SECRET", "change_me_in_production"))

// DefaultShopID is stamped on cart line items that arrive without one.
const DefaultShopID = "crumble-main"

// Context keys
type ContextKey string

const RoleKey ContextKey = "role"
const UserIDKey ContextKey = "userId"

var Ctx = context.Background()

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
