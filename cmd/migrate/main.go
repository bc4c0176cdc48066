package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/jaume768/splashmy/internal/infra"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	username TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	avatar_url TEXT NOT NULL DEFAULT '',
	is_premium BOOLEAN NOT NULL DEFAULT FALSE,
	email_verified BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE TABLE IF NOT EXISTS email_verifications (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	code_hash TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	attempts INT NOT NULL DEFAULT 0,
	last_sent_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	resend_count INT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE TABLE IF NOT EXISTS password_resets (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	code_hash TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	attempts INT NOT NULL DEFAULT 0,
	used_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE TABLE IF NOT EXISTS images (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	original_filename TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	storage_key TEXT NOT NULL,
	url TEXT NOT NULL DEFAULT '',
	format TEXT NOT NULL,
	size_bytes BIGINT NOT NULL DEFAULT 0,
	moderation_passed BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE TABLE IF NOT EXISTS style_categories (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	icon TEXT NOT NULL DEFAULT '',
	color TEXT NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	sort_order INT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE TABLE IF NOT EXISTS styles (
	id UUID PRIMARY KEY,
	category_id UUID NOT NULL REFERENCES style_categories(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	prompt_template TEXT NOT NULL,
	preview_image TEXT NOT NULL DEFAULT '',
	thumbnail TEXT NOT NULL DEFAULT '',
	default_quality TEXT NOT NULL DEFAULT 'auto',
	default_background TEXT NOT NULL DEFAULT 'auto',
	default_output_format TEXT NOT NULL DEFAULT 'png',
	default_size TEXT NOT NULL DEFAULT 'auto',
	default_compression INT NOT NULL DEFAULT 85,
	supports_transparency BOOLEAN NOT NULL DEFAULT FALSE,
	supports_streaming BOOLEAN NOT NULL DEFAULT FALSE,
	max_prompt_length INT NOT NULL DEFAULT 2000,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	is_premium BOOLEAN NOT NULL DEFAULT FALSE,
	sort_order INT NOT NULL DEFAULT 0,
	popularity_score INT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE TABLE IF NOT EXISTS processing_jobs (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	kind TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	source_image_id UUID REFERENCES images(id) ON DELETE SET NULL,
	style_id UUID REFERENCES styles(id) ON DELETE SET NULL,
	prompt TEXT NOT NULL DEFAULT '',
	params JSONB NOT NULL DEFAULT '{}',
	is_public BOOLEAN NOT NULL DEFAULT FALSE,
	moderation_passed BOOLEAN NOT NULL DEFAULT FALSE,
	moderation_details JSONB,
	moderation_checked_at TIMESTAMPTZ,
	started_at TIMESTAMPTZ,
	completed_at TIMESTAMPTZ,
	processing_time DOUBLE PRECISION,
	error_message TEXT NOT NULL DEFAULT '',
	error_details JSONB,
	retry_count INT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS idx_processing_jobs_claim ON processing_jobs (created_at) WHERE status = 'pending'`,
	`CREATE INDEX IF NOT EXISTS idx_processing_jobs_user ON processing_jobs (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS processing_results (
	id UUID PRIMARY KEY,
	job_id UUID NOT NULL REFERENCES processing_jobs(id) ON DELETE CASCADE,
	format TEXT NOT NULL,
	size TEXT NOT NULL DEFAULT '',
	quality TEXT NOT NULL DEFAULT '',
	background TEXT NOT NULL DEFAULT '',
	storage_key TEXT NOT NULL,
	url TEXT NOT NULL DEFAULT '',
	size_bytes BIGINT NOT NULL DEFAULT 0,
	token_usage JSONB,
	user_rating INT,
	is_favorite BOOLEAN NOT NULL DEFAULT FALSE,
	is_public BOOLEAN NOT NULL DEFAULT FALSE,
	download_count INT NOT NULL DEFAULT 0,
	like_count INT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS idx_processing_results_job ON processing_results (job_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS streaming_events (
	id UUID PRIMARY KEY,
	job_id UUID NOT NULL REFERENCES processing_jobs(id) ON DELETE CASCADE,
	event_type TEXT NOT NULL,
	partial_index INT,
	metadata JSONB,
	received_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS idx_streaming_events_job ON streaming_events (job_id, received_at)`,
	`CREATE TABLE IF NOT EXISTS user_processing_quotas (
	user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
	daily_generations INT NOT NULL DEFAULT 0,
	daily_edits INT NOT NULL DEFAULT 0,
	daily_style_transfers INT NOT NULL DEFAULT 0,
	total_generations INT NOT NULL DEFAULT 0,
	total_edits INT NOT NULL DEFAULT 0,
	total_style_transfers INT NOT NULL DEFAULT 0,
	last_reset_date DATE NOT NULL DEFAULT CURRENT_DATE,
	monthly_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "migrate: open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		fmt.Fprintln(os.Stderr, "migrate: ping:", err)
		os.Exit(1)
	}

	for i, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: statement %d failed: %v\n", i+1, err)
			os.Exit(1)
		}
	}
	fmt.Println("migrate: schema up to date")
}
