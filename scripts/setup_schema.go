package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
)

func main() {
	fmt.Println("Applying threadloom schema...")

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	schema, err := os.ReadFile("scripts/schema.sql")
	if err != nil {
		log.Fatalf("Failed to read schema file: %v", err)
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, string(schema)); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	fmt.Println("✓ Schema applied")
	fmt.Println("\nRemember to run River's migrations as well:")
	fmt.Println("  river migrate-up --database-url $DATABASE_URL")
}
