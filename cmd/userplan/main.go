// Command userplan toggles the premium flag of an account.
//
//	userplan -email user@example.com -premium
//	userplan -email user@example.com -premium=false
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/jaume768/splashmy/internal/adapter/repo"
	"github.com/jaume768/splashmy/internal/infra"
)

func main() {
	_ = godotenv.Load()

	emailFlag := flag.String("email", "", "account email")
	premiumFlag := flag.Bool("premium", true, "premium flag value")
	flag.Parse()

	if *emailFlag == "" {
		fmt.Fprintln(os.Stderr, "userplan: -email is required")
		os.Exit(2)
	}

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "userplan:", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "userplan: db connection failed:", err)
		os.Exit(1)
	}
	defer pool.Close()

	users := repo.NewUserRepository(pool)
	user, err := users.GetByEmail(ctx, *emailFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "userplan:", err)
		os.Exit(1)
	}
	if err := users.SetPremium(ctx, user.ID, *premiumFlag); err != nil {
		fmt.Fprintln(os.Stderr, "userplan:", err)
		os.Exit(1)
	}
	fmt.Printf("userplan: %s premium=%v\n", user.Email, *premiumFlag)
}
