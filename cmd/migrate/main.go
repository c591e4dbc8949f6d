package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/licitaware/procura/internal/database"
	"github.com/licitaware/procura/internal/database/models"
)

func main() {
	var (
		host     = flag.String("host", "localhost", "Database host")
		port     = flag.Int("port", 5432, "Database port")
		username = flag.String("username", "postgres", "Database username")
		password = flag.String("password", "", "Database password")
		dbname   = flag.String("database", "procura", "Database name")
		sslmode  = flag.String("sslmode", "disable", "SSL mode")
		command  = flag.String("command", "migrate", "Command to run: migrate, seed-municipalities")
		seedFile = flag.String("seed-file", "", "CSV file with municipality rows: code,name,state,latitude,longitude")
	)
	flag.Parse()

	// Override with environment variables if available
	if envHost := os.Getenv("DB_HOST"); envHost != "" {
		*host = envHost
	}
	if envPort := os.Getenv("DB_PORT"); envPort != "" {
		if p, err := strconv.Atoi(envPort); err == nil {
			*port = p
		}
	}
	if envUsername := os.Getenv("DB_USERNAME"); envUsername != "" {
		*username = envUsername
	}
	if envPassword := os.Getenv("DB_PASSWORD"); envPassword != "" {
		*password = envPassword
	}
	if envDatabase := os.Getenv("DB_DATABASE"); envDatabase != "" {
		*dbname = envDatabase
	}
	if envSSLMode := os.Getenv("DB_SSL_MODE"); envSSLMode != "" {
		*sslmode = envSSLMode
	}

	config := &database.Config{
		Host:     *host,
		Port:     *port,
		Username: *username,
		Password: *password,
		Database: *dbname,
		SSLMode:  *sslmode,
	}

	conn, err := database.NewConnection(config)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	switch *command {
	case "migrate":
		fmt.Println("Running migrations...")
		if err := conn.AutoMigrate(); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		fmt.Println("Migrations completed successfully.")

	case "seed-municipalities":
		if *seedFile == "" {
			log.Fatal("-seed-file is required for seed-municipalities")
		}
		count, err := seedMunicipalities(ctx, conn, *seedFile)
		if err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
		fmt.Printf("Seeded %d municipalities.\n", count)

	default:
		log.Fatalf("Unknown command: %s", *command)
	}
}

// seedMunicipalities upserts the municipality coordinate table from a CSV
// file. Rows with a malformed coordinate are skipped with a warning rather
// than aborting the whole load.
func seedMunicipalities(ctx context.Context, conn *database.Connection, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 5

	count := 0
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("failed to read seed file: %w", err)
		}
		line++

		// Header row
		if line == 1 && record[0] == "code" {
			continue
		}

		lat, latErr := strconv.ParseFloat(record[3], 64)
		lon, lonErr := strconv.ParseFloat(record[4], 64)
		if latErr != nil || lonErr != nil {
			log.Printf("Skipping line %d: malformed coordinates", line)
			continue
		}

		m := models.Municipality{
			Code:      record[0],
			Name:      record[1],
			State:     record[2],
			Latitude:  lat,
			Longitude: lon,
		}
		if err := conn.DB().WithContext(ctx).Save(&m).Error; err != nil {
			return count, fmt.Errorf("failed to upsert municipality %s: %w", m.Code, err)
		}
		count++
	}

	return count, nil
}
