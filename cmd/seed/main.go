package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/osa623/arxadmin/internal/security"
)

func main() {
	env := getEnv("ARX_ENV", "dev")
	if env != "dev" && env != "test" {
		log.Fatalf("refusing to seed: ARX_ENV must be 'dev' or 'test' (got '%s')", env)
	}

	host := getEnv("POSTGRES_HOST", "localhost")
	port := getEnv("POSTGRES_PORT", "5432")
	db := getEnv("POSTGRES_DB", "arx_admin")
	user := getEnv("POSTGRES_USER", "arx")
	password := getEnv("POSTGRES_PASSWORD", "arx")
	sslmode := getEnv("POSTGRES_SSLMODE", "disable")

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		user, password, host, port, db, sslmode)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping db: %v", err)
	}

	fmt.Println("Seeding database...")

	if err := seedAdmins(ctx, pool); err != nil {
		log.Fatalf("seed admins: %v", err)
	}
	fmt.Println("✓ Admins seeded")

	if err := seedRecords(ctx, pool); err != nil {
		log.Fatalf("seed records: %v", err)
	}
	fmt.Println("✓ Extracted records seeded")

	fmt.Println("Done.")
}

func seedAdmins(ctx context.Context, pool *pgxpool.Pool) error {
	params := security.Argon2Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}

	hash, err := security.HashPassword("admin123", params)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO admins (email, password_hash, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (email) DO NOTHING
	`, "demo@example.com", hash)
	return err
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
