package repository

import (
	"database/sql"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"

	"primetrade/configs"
	"primetrade/internal/policy"
)

// CreateTableIfNotExists bootstraps the users and tasks tables. tasks.user_id
// deliberately carries no foreign key: deleting a user leaves its tasks
// orphaned rather than blocking or cascading.
func CreateTableIfNotExists(db *sql.DB) {
	query := `
CREATE TABLE IF NOT EXISTS users (
    id SERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    email VARCHAR(255) NOT NULL UNIQUE,
    password VARCHAR(255) NOT NULL,
    role VARCHAR(255) NOT NULL DEFAULT 'user',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS tasks (
    id SERIAL PRIMARY KEY,
    user_id INT NOT NULL,
    title VARCHAR(255) NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
    `

	_, err := db.Exec(query)
	if err != nil {
		log.Fatalf("Error creating table: %v", err)
	} else {
		fmt.Println("Tables 'users' and 'tasks' are ready.")
	}
}

// CreateSuperadmin seeds the superadmin account from config when configured
// and not already present. Registration never produces this role, so seeding
// is the only way it comes into existence.
func CreateSuperadmin(db *sql.DB, cfg configs.Config) {
	if cfg.SuperadminEmail == "" || cfg.SuperadminPassword == "" {
		return
	}

	var existing int
	err := db.QueryRow("SELECT id FROM users WHERE email = $1", cfg.SuperadminEmail).Scan(&existing)
	if err == nil {
		return
	}
	if err != sql.ErrNoRows {
		log.Fatalf("Error checking superadmin user: %v", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(cfg.SuperadminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Error hashing superadmin password: %v", err)
	}

	name := cfg.SuperadminName
	if name == "" {
		name = "superadmin"
	}
	_, err = db.Exec(
		"INSERT INTO users (name, email, password, role) VALUES ($1, $2, $3, $4)",
		name, cfg.SuperadminEmail, string(hashedPassword), policy.RoleSuperadmin.String(),
	)
	if err != nil {
		log.Fatalf("Error inserting superadmin user: %v", err)
	} else {
		fmt.Printf("Superadmin user '%s' is created.\n", cfg.SuperadminEmail)
	}
}

// DeleteAllTable drops everything; test teardown only.
func DeleteAllTable(db *sql.DB) {
	query := `
    DROP TABLE IF EXISTS tasks;
    DROP TABLE IF EXISTS users;
    `

	_, err := db.Exec(query)
	if err != nil {
		log.Fatalf("Error deleting table: %v", err)
	} else {
		fmt.Println("Tables 'tasks' and 'users' are deleted.")
	}
}
