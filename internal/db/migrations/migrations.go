package migrations

import (
	"database/sql"
	"fmt"

	"github.com/felipe/zapgateway/internal/logger"
)

// Migration é uma mudança de schema versionada e idempotente
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrator aplica as migrações pendentes em ordem de versão
type Migrator struct {
	db  *sql.DB
	log logger.Logger
}

func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{
		db:  db,
		log: logger.ForComponent("migrations"),
	}
}

// Run aplica todas as migrações ainda não registradas em schema_migrations
func (m *Migrator) Run() error {
	if err := m.createMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := m.appliedVersions()
	if err != nil {
		return fmt.Errorf("failed to load applied migrations: %w", err)
	}

	for _, migration := range allMigrations {
		if applied[migration.Version] {
			continue
		}

		m.log.Info().
			Int("version", migration.Version).
			Str("name", migration.Name).
			Msg("Applying migration")

		if err := m.apply(migration); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}
	}

	return nil
}

func (m *Migrator) createMigrationsTable() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func (m *Migrator) appliedVersions() (map[int]bool, error) {
	rows, err := m.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

func (m *Migrator) apply(migration Migration) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(migration.SQL); err != nil {
		tx.Rollback()
		return err
	}

	if _, err := tx.Exec(
		`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`,
		migration.Version, migration.Name,
	); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

var allMigrations = []Migration{
	{
		Version: 1,
		Name:    "create_organizations",
		SQL: `
			CREATE EXTENSION IF NOT EXISTS "uuid-ossp";

			CREATE TABLE IF NOT EXISTS organizations (
				id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
				name TEXT NOT NULL,
				owner_user_id UUID NOT NULL,
				tier TEXT NOT NULL DEFAULT 'free',
				max_accounts INTEGER NOT NULL DEFAULT 1,
				max_messages_per_month INTEGER NOT NULL DEFAULT 1000,
				webhook_url TEXT,
				crm_api_key TEXT,
				crm_location_id TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_organizations_owner
				ON organizations(owner_user_id);
		`,
	},
	{
		Version: 2,
		Name:    "create_whatsapp_sessions",
		SQL: `
			CREATE TABLE IF NOT EXISTS whatsapp_sessions (
				id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
				session_id TEXT NOT NULL UNIQUE,
				organization_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
				phone_number TEXT,
				status TEXT NOT NULL DEFAULT 'disconnected',
				auth_state BYTEA,
				last_qr_code TEXT,
				last_seen_at TIMESTAMPTZ,
				error_message TEXT,
				reconnect_attempts INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_whatsapp_sessions_org
				ON whatsapp_sessions(organization_id);
			CREATE INDEX IF NOT EXISTS idx_whatsapp_sessions_status
				ON whatsapp_sessions(status);
		`,
	},
	{
		Version: 3,
		Name:    "create_messages",
		SQL: `
			CREATE TABLE IF NOT EXISTS messages (
				id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
				session_id TEXT NOT NULL REFERENCES whatsapp_sessions(session_id) ON DELETE CASCADE,
				organization_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
				message_id TEXT NOT NULL,
				direction TEXT NOT NULL,
				from_number TEXT NOT NULL,
				to_number TEXT NOT NULL,
				message_type TEXT NOT NULL DEFAULT 'text',
				content JSONB NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending',
				is_group_message BOOLEAN NOT NULL DEFAULT FALSE,
				group_jid TEXT,
				synced_to_crm BOOLEAN NOT NULL DEFAULT FALSE,
				crm_message_id TEXT,
				timestamp TIMESTAMPTZ NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				CONSTRAINT uq_messages_message_session UNIQUE (message_id, session_id)
			);

			CREATE INDEX IF NOT EXISTS idx_messages_session
				ON messages(session_id, timestamp DESC);
			CREATE INDEX IF NOT EXISTS idx_messages_org
				ON messages(organization_id, timestamp DESC);
			CREATE INDEX IF NOT EXISTS idx_messages_pending_sync
				ON messages(organization_id, created_at)
				WHERE synced_to_crm = FALSE AND direction = 'inbound';
		`,
	},
	{
		Version: 4,
		Name:    "create_groups",
		SQL: `
			CREATE TABLE IF NOT EXISTS groups (
				id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
				session_id TEXT NOT NULL REFERENCES whatsapp_sessions(session_id) ON DELETE CASCADE,
				group_jid TEXT NOT NULL,
				name TEXT NOT NULL DEFAULT '',
				description TEXT,
				participant_count INTEGER NOT NULL DEFAULT 0,
				is_admin BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				CONSTRAINT uq_groups_session_jid UNIQUE (session_id, group_jid)
			);
		`,
	},
	{
		Version: 5,
		Name:    "create_webhook_logs",
		SQL: `
			CREATE TABLE IF NOT EXISTS webhook_logs (
				id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
				organization_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
				message_id UUID NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
				url TEXT NOT NULL,
				payload JSONB NOT NULL,
				status_code INTEGER,
				response_body TEXT,
				retry_count INTEGER NOT NULL DEFAULT 0,
				status TEXT NOT NULL DEFAULT 'pending',
				error_message TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_webhook_logs_message
				ON webhook_logs(message_id);
			CREATE INDEX IF NOT EXISTS idx_webhook_logs_org_created
				ON webhook_logs(organization_id, created_at DESC);
		`,
	},
	{
		Version: 6,
		Name:    "create_usage_records",
		SQL: `
			CREATE TABLE IF NOT EXISTS usage_records (
				id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
				organization_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
				period_start DATE NOT NULL,
				messages_sent INTEGER NOT NULL DEFAULT 0,
				messages_received INTEGER NOT NULL DEFAULT 0,
				active_sessions INTEGER NOT NULL DEFAULT 0,
				api_calls INTEGER NOT NULL DEFAULT 0,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				CONSTRAINT uq_usage_org_period UNIQUE (organization_id, period_start)
			);
		`,
	},
}
