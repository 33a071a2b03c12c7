package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.mau.fi/whatsmeow/store/sqlstore"

	"github.com/felipe/zapgateway/internal/config"
	"github.com/felipe/zapgateway/internal/db/migrations"
	"github.com/felipe/zapgateway/internal/logger"
)

// DB encapsula a conexão com o PostgreSQL compartilhada entre os
// repositórios e o container de devices do whatsmeow.
type DB struct {
	*sqlx.DB
	cfg *config.DatabaseConfig
	log logger.Logger
}

// New cria uma nova conexão com o banco e configura o pool
func New(cfg *config.DatabaseConfig) (*DB, error) {
	log := logger.ForComponent("database")

	sqlDB, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Int("max_open_conns", cfg.MaxOpenConns).
		Int("max_idle_conns", cfg.MaxIdleConns).
		Msg("Database connection established")

	return &DB{
		DB:  sqlx.NewDb(sqlDB, "postgres"),
		cfg: cfg,
		log: log,
	}, nil
}

// Migrate executa as migrações pendentes do schema da aplicação
func (d *DB) Migrate() error {
	return migrations.NewMigrator(d.DB.DB).Run()
}

// GetSQLStore cria o container do whatsmeow sobre a mesma conexão.
// O Upgrade cria as tabelas whatsmeow_* se ainda não existirem.
func (d *DB) GetSQLStore(ctx context.Context) (*sqlstore.Container, error) {
	container := sqlstore.NewWithDB(d.DB.DB, "postgres", logger.GetWhatsAppLogger("sqlstore"))

	if err := container.Upgrade(ctx); err != nil {
		return nil, fmt.Errorf("failed to upgrade whatsmeow store: %w", err)
	}

	return container, nil
}

// Health verifica se o banco responde dentro do timeout
func (d *DB) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return d.DB.PingContext(ctx)
}

// Transaction executa fn dentro de uma transação, com rollback em erro
func (d *DB) Transaction(fn func(tx *sqlx.Tx) error) error {
	tx, err := d.DB.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original: %w)", rbErr, err)
		}
		return err
	}

	return tx.Commit()
}

// Close encerra o pool de conexões
func (d *DB) Close() error {
	d.log.Info().Msg("Closing database connection")
	return d.DB.Close()
}
