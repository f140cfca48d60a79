package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/mediakeep/mediakeep/pkg/config"
	"github.com/mediakeep/mediakeep/pkg/database"
)

func main() {
	var (
		host     = flag.String("host", getEnv("DB_HOST", "localhost"), "Database host")
		port     = flag.Int("port", getEnvAsInt("DB_PORT", 5432), "Database port")
		user     = flag.String("user", getEnv("DB_USER", "mediakeep"), "Database user")
		password = flag.String("password", getEnv("DB_PASSWORD", "mediakeep_dev"), "Database password")
		dbname   = flag.String("dbname", getEnv("DB_NAME", "mediakeep_dev"), "Database name")
		sslmode  = flag.String("sslmode", getEnv("DB_SSLMODE", "disable"), "SSL mode")
		status   = flag.Bool("status", false, "Show migration status")
		dryRun   = flag.Bool("dry-run", false, "Show pending migrations without applying them")
	)
	flag.Parse()

	cfg := config.DatabaseConfig{
		Host:            *host,
		Port:            *port,
		User:            *user,
		Password:        *password,
		Database:        *dbname,
		SSLMode:         *sslmode,
		MaxConnections:  5,
		MinConnections:  1,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}

	db, err := database.NewGormDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	switch {
	case *status:
		showMigrationStatus(db)
	case *dryRun:
		showPendingMigrations(db)
	default:
		runMigrations(db)
	}
}

// runMigrations applies all pending migrations
func runMigrations(db *gorm.DB) {
	fmt.Println("Running database migrations...")

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	fmt.Println("Migrations completed successfully!")
}

// showMigrationStatus displays the applied migrations
func showMigrationStatus(db *gorm.DB) {
	var migrations []database.Migration
	if err := db.Order("applied_at DESC").Find(&migrations).Error; err != nil {
		log.Fatalf("Failed to get migrations: %v", err)
	}

	if len(migrations) == 0 {
		fmt.Println("No migrations have been applied yet.")
		return
	}

	fmt.Println("Applied migrations:")
	fmt.Println("==================")
	for _, m := range migrations {
		fmt.Printf("%s  %s  (applied %s)\n", m.Version, m.Name, m.AppliedAt.Format(time.RFC3339))
	}
}

// showPendingMigrations lists migrations that have not been applied
func showPendingMigrations(db *gorm.DB) {
	pending, err := database.NewMigrator(db).GetPendingMigrations()
	if err != nil {
		log.Fatalf("Failed to get pending migrations: %v", err)
	}

	if len(pending) == 0 {
		fmt.Println("No pending migrations.")
		return
	}

	fmt.Println("Pending migrations:")
	fmt.Println("==================")
	for _, m := range pending {
		fmt.Printf("%s  %s\n", m.Version, m.Name)
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
