package main

import (
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "github.com/tursodatabase/libsql-client-go/libsql"

	"github.com/boardtenz/bracketline/internal/playercode"
)

// Simplified config loading for the script
func loadConfig() map[string]string {
	err := godotenv.Load()
	if err != nil {
		log.Warn("No .env file found, reading from environment variables")
	}

	config := make(map[string]string)
	required := []string{"TURSO_PRIMARY_URL", "TURSO_AUTH_TOKEN"}

	for _, key := range required {
		if value, ok := os.LookupEnv(key); ok {
			config[key] = value
		} else {
			log.Fatalf("Error: Required environment variable %s is not set.", key)
		}
	}
	return config
}

func main() {
	log.Info("Starting database seeder...")
	cfg := loadConfig()

	// Connect directly to the primary database
	dbURL := fmt.Sprintf("%s?authToken=%s", cfg["TURSO_PRIMARY_URL"], cfg["TURSO_AUTH_TOKEN"])
	db, err := sql.Open("libsql", dbURL)
	if err != nil {
		log.Fatalf("Failed to open primary database: %s", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to connect to primary database: %s", err)
	}

	log.Info("Successfully connected to the primary database.")

	now := time.Now().UTC().Format(time.RFC3339)

	// Ensure there is an active season to attach ratings to.
	seasonID := uuid.NewString()
	_, err = db.Exec(`
		INSERT INTO seasons (id, status, start_at)
		SELECT ?, 'active', ?
		WHERE NOT EXISTS (SELECT 1 FROM seasons WHERE status = 'active')`, seasonID, now)
	if err != nil {
		log.Fatalf("Failed to ensure active season: %s", err)
	}
	row := db.QueryRow(`SELECT id FROM seasons WHERE status = 'active' ORDER BY start_at DESC LIMIT 1`)
	if err := row.Scan(&seasonID); err != nil {
		log.Fatalf("Failed to read active season: %s", err)
	}
	log.Info("Using active season", "season_id", seasonID)

	const batchSize = 100
	const numUsers = 1000

	log.Info("Preparing to insert dummy players...", "total", numUsers, "batch_size", batchSize)
	startTime := time.Now()

	tx, err := db.Begin()
	if err != nil {
		log.Fatalf("Failed to begin transaction: %s", err)
	}

	userValues := make([]string, 0, batchSize)
	userArgs := make([]interface{}, 0, batchSize*3)
	ratingValues := make([]string, 0, batchSize)
	ratingArgs := make([]interface{}, 0, batchSize*5)

	for i := 0; i < numUsers; i++ {
		code, err := playercode.Generate()
		if err != nil {
			tx.Rollback()
			log.Fatalf("Failed to generate player code: %s", err)
		}
		username := fmt.Sprintf("seed-player-%04d", i)
		rating := 1000 + rand.Intn(600)

		userValues = append(userValues, "(?, ?, ?)")
		userArgs = append(userArgs, code, username, now)
		ratingValues = append(ratingValues, "(?, ?, ?, ?, ?)")
		ratingArgs = append(ratingArgs, code, seasonID, rating, rand.Intn(40), now)

		if (i+1)%batchSize == 0 || (i+1) == numUsers {
			userStmt := fmt.Sprintf(`
				INSERT OR IGNORE INTO users (id, username, created_at)
				VALUES %s;`, strings.Join(userValues, ","))
			if _, err := tx.Exec(userStmt, userArgs...); err != nil {
				tx.Rollback()
				log.Fatalf("Failed to execute user batch insert: %s", err)
			}

			ratingStmt := fmt.Sprintf(`
				INSERT OR IGNORE INTO player_season_ratings
					(user_id, season_id, rating_current, matches_played, updated_at)
				VALUES %s;`, strings.Join(ratingValues, ","))
			if _, err := tx.Exec(ratingStmt, ratingArgs...); err != nil {
				tx.Rollback()
				log.Fatalf("Failed to execute rating batch insert: %s", err)
			}

			// Reset for the next batch
			userValues = make([]string, 0, batchSize)
			userArgs = make([]interface{}, 0, batchSize*3)
			ratingValues = make([]string, 0, batchSize)
			ratingArgs = make([]interface{}, 0, batchSize*5)
			log.Info("Inserted batch", "completed", i+1, "total", numUsers)
		}
	}

	if err := tx.Commit(); err != nil {
		log.Fatalf("Failed to commit transaction: %s", err)
	}

	duration := time.Since(startTime)
	log.Info("Successfully seeded dummy players and ratings.", "duration", duration)
}
