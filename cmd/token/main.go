// Command token mints an access token for local testing against the API.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cmlabs-parking/parking-backend-go/internal/config"
	"github.com/cmlabs-parking/parking-backend-go/internal/domain/user"
	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/jwt"
)

func main() {
	employeeID := flag.String("employee", "", "employee id carried in the token")
	name := flag.String("name", "", "employee display name")
	role := flag.String("role", string(user.RoleAttendant), "attendant, supervisor, manager or admin")
	ttl := flag.Duration("ttl", 0, "token lifetime, defaults to JWT_ACCESS_EXPIRATION_TIME")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}

	if *employeeID == "" {
		fmt.Fprintln(os.Stderr, "-employee is required")
		os.Exit(2)
	}
	if !user.Role(*role).Valid() {
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(2)
	}

	expiration := cfg.JWT.AccessExpiration
	if *ttl > 0 {
		expiration = *ttl
	}

	token, expiresAt, err := jwt.NewJWTService(cfg.JWT.Secret, expiration).GenerateAccessToken(*employeeID, *name, user.Role(*role))
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error generating token:", err)
		os.Exit(1)
	}

	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires at %s\n", time.Unix(expiresAt, 0).Format(time.RFC3339))
}
