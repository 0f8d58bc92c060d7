package db

import (
	"database/sql"
	"fmt"
	"log"

	"orpheus/config"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

var DB *sql.DB

// ConnectDB establishes a connection to the database.
func ConnectDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to the database.")
	return nil
}

// InitDB initializes the database schema, creating tables if they don't exist.
func InitDB() error {
	if err := createJobsTable(); err != nil {
		return err
	}
	log.Println("Database initialization completed.")
	return nil
}

func createJobsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS jobs (
		id VARCHAR(36) PRIMARY KEY,
		user_id INT,
		prompt TEXT NOT NULL,
		duration VARCHAR(16) NOT NULL DEFAULT 'short',
		status VARCHAR(16) NOT NULL DEFAULT 'processing',
		error TEXT,
		file_path VARCHAR(767),
		duration_sec DOUBLE,
		sample_rate INT,
		num_segments INT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_jobs_user (user_id),
		INDEX idx_jobs_status (status)
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create jobs table: %w", err)
	}
	log.Println("Jobs table initialized successfully (or already exists).")
	return nil
}
