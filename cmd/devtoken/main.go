// Command devtoken prints a signed access token for an existing user, for use
// against a development API:
//
//	go run ./cmd/devtoken -user teacher1
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/yigit/classjournal/internal/app/repositories"
	"github.com/yigit/classjournal/internal/bootstrap"
	"github.com/yigit/classjournal/internal/db"
)

func main() {
	username := flag.String("user", "teacher1", "username to issue the token for")
	flag.Parse()

	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger()
	if err != nil {
		os.Exit(1)
	}

	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		os.Exit(1)
	}
	defer database.Close()

	user, err := repositories.NewUserRepository(database.Pool).GetByUsername(context.Background(), *username)
	if err != nil {
		lgr.Error().Err(err).Str("username", *username).Msg("User not found")
		database.Close()
		os.Exit(1)
	}

	token, expiresAt, err := bootstrap.NewJWTService(cfg).GenerateToken(user.ID, user.Username, string(user.Role))
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to sign token")
		database.Close()
		os.Exit(1)
	}

	lgr.Info().Int64("userID", user.ID).Str("role", string(user.Role)).Time("expiresAt", expiresAt).Msg("Token issued")
	fmt.Println(token)
}
