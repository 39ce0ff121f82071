// seed-admin creates the admin user or resets its password and role.
//
// Usage (from backend directory):
//
//	STORE_DRIVER=mysql DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//	  ADMIN_EMAIL=admin@example.com ADMIN_PASSWORD=... go run ./cmd/seed-admin
//
// Flags override the ADMIN_* variables.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/mmdatafocus/autoservice_backend/config"
	"github.com/mmdatafocus/autoservice_backend/store/backend"
	"github.com/mmdatafocus/autoservice_backend/workflow"
)

func main() {
	godotenv.Load()

	emailFlag := flag.String("email", envOr("ADMIN_EMAIL", ""), "admin email (login name)")
	passwordFlag := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "admin password")
	nameFlag := flag.String("name", envOr("ADMIN_NAME", "Administrator"), "display name")
	flag.Parse()

	if strings.TrimSpace(*emailFlag) == "" || *passwordFlag == "" {
		fmt.Fprintln(os.Stderr, "email and password are required (set ADMIN_EMAIL/ADMIN_PASSWORD or pass -email/-password)")
		os.Exit(2)
	}

	ctx := context.Background()
	st, err := backend.Open(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to migrate: %v\n", err)
		os.Exit(1)
	}

	users := workflow.NewUserService(st, config.GetLogger())
	user, created, err := users.EnsureAdmin(ctx, uuid.NewString(), *nameFlag, *emailFlag, *passwordFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed admin: %v\n", err)
		os.Exit(1)
	}
	if created {
		fmt.Printf("created admin user %s (id=%s)\n", user.Email, user.ID)
		return
	}
	fmt.Printf("updated admin user %s (id=%s): password and role reset\n", user.Email, user.ID)
}

func envOr(key string, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
