// Command caribook-user creates or resets a sign-in account in the SQLite
// store. The role follows ADMIN_EMAILS.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"caribook/internal/auth"
	"caribook/internal/cli"
	"caribook/internal/log"
	"caribook/internal/storage"
)

func main() {
	email := flag.String("email", "", "account email")
	passwordStdin := flag.Bool("password-stdin", false, "read the password from the first line of stdin")
	status := flag.Bool("migrations", false, "print the schema version and exit")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	if *status {
		version, dirty, err := storage.SchemaVersion(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to read schema version", log.FieldError, err)
			os.Exit(1)
		}
		fmt.Printf("schema version %d (dirty=%t)\n", version, dirty)
		return
	}

	if strings.TrimSpace(*email) == "" {
		fmt.Fprintln(os.Stderr, "usage: caribook-user -email <address> [-password-stdin]")
		os.Exit(2)
	}

	password := os.Getenv("CARIBOOK_PASSWORD")
	if *passwordStdin {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			logger.Error("Failed to read password from stdin", log.FieldError, err)
			os.Exit(1)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		fmt.Fprintln(os.Stderr, "password required: set CARIBOOK_PASSWORD or use -password-stdin")
		os.Exit(2)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	service := auth.NewService(repo, cfg.AdminEmails, cfg.JWTSecret, cfg.SessionTTL, auth.WithLogger(logger))
	profile, err := service.Provision(context.Background(), *email, password)
	if err != nil {
		logger.Error("Failed to provision user", log.FieldError, err)
		repo.Close()
		os.Exit(1)
	}
	logger.Info("User provisioned",
		log.FieldUserID, profile.UID,
		log.FieldRole, profile.Role,
		"email", profile.Email)
}
