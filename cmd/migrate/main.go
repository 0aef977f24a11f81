package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"peoplecounter/internal/logger"
	"peoplecounter/internal/repository/sqlite"
	"peoplecounter/internal/service/auth"
)

func main() {
	dbPath := flag.String("db", "data/users.db", "Database path")
	username := flag.String("user", "", "Create this user after migrating")
	password := flag.String("password", "", "Password for -user")
	cost := flag.Int("cost", 10, "bcrypt cost for -password")
	flag.Parse()

	fmt.Printf("Migrating database %s\n", *dbPath)

	// Ensure database directory exists
	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	// Opening the database applies the schema
	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("Schema is up to date")

	if *username == "" {
		return
	}

	sessions := auth.NewService(sqlite.NewUserRepository(db), "migrate", *cost, logger.Discard())
	user, err := sessions.Signup(*username, *password)
	switch {
	case errors.Is(err, auth.ErrUserExists):
		fmt.Printf("User %s already exists, skipped\n", *username)
	case err != nil:
		log.Fatalf("Failed to create user: %v", err)
	default:
		fmt.Printf("Created user %s (id %d)\n", user.Username, user.ID)
	}
}
