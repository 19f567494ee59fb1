package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
	"github.com/mediaforge/vod-service/internal/config"
	"github.com/mediaforge/vod-service/internal/storage"
	"github.com/mediaforge/vod-service/internal/types"
)

type Postgres struct {
	Db *sql.DB
}

func NewPostgres(cfg *config.Config) (*Postgres, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.PGSQL.Host, cfg.PGSQL.Port, cfg.PGSQL.User, cfg.PGSQL.Password, cfg.PGSQL.DBName, cfg.PGSQL.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	err = db.Ping()
	if err != nil {
		return nil, err
	}

	log.Println("Connected to Postgres database")

	// Create tables if they don't exist
	pg := &Postgres{Db: db}
	err = pg.CreateTables()
	if err != nil {
		log.Fatal("Failed to create tables:", err)
	}

	return pg, nil
}

func (p *Postgres) CreateTables() error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			password TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		`,
		`
		CREATE TABLE IF NOT EXISTS media_items (
			id UUID PRIMARY KEY,
			owner_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			external_asset_id VARCHAR(255),
			playback_id VARCHAR(255),
			state VARCHAR(20) NOT NULL DEFAULT 'pending' CHECK (state IN ('pending', 'ready', 'failed')),
			error_message TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		`,
		`CREATE INDEX IF NOT EXISTS idx_media_items_owner ON media_items (owner_id);`,
		`CREATE INDEX IF NOT EXISTS idx_media_items_state ON media_items (state);`,
	}

	for _, q := range queries {
		if _, err := p.Db.Exec(q); err != nil {
			return err
		}
	}

	return nil
}

func (p *Postgres) CreateMediaItem(item types.MediaItem) error {
	query := `
	INSERT INTO media_items (id, owner_id, title, state)
	VALUES ($1, $2, $3, $4)
	`

	_, err := p.Db.Exec(query, item.ID, item.OwnerID, item.Title, item.State)
	return err
}

func (p *Postgres) GetMediaItemByID(id string) (types.MediaItem, error) {
	query := `
	SELECT id, owner_id, title, external_asset_id, playback_id, state, error_message, created_at, updated_at
	FROM media_items WHERE id = $1
	`

	return p.scanMediaItem(p.Db.QueryRow(query, id))
}

func (p *Postgres) ListMediaItemsForOwner(ownerID string) ([]types.MediaItem, error) {
	query := `
	SELECT id, owner_id, title, external_asset_id, playback_id, state, error_message, created_at, updated_at
	FROM media_items WHERE owner_id = $1 ORDER BY created_at DESC
	`

	rows, err := p.Db.Query(query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []types.MediaItem
	for rows.Next() {
		item, err := p.scanMediaItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func (p *Postgres) MarkMediaReady(id, externalAssetID, playbackID string) (bool, error) {
	// Conditional update: the pending check and the field writes happen in a
	// single statement, so two concurrent duplicate deliveries can never both
	// transition the row.
	query := `
	UPDATE media_items
	SET external_asset_id = $2, playback_id = $3, state = 'ready', updated_at = CURRENT_TIMESTAMP
	WHERE id = $1 AND state = 'pending'
	`

	result, err := p.Db.Exec(query, id, externalAssetID, playbackID)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (p *Postgres) MarkMediaFailed(id, errorMessage string) (bool, error) {
	query := `
	UPDATE media_items
	SET error_message = $2, state = 'failed', updated_at = CURRENT_TIMESTAMP
	WHERE id = $1 AND state = 'pending'
	`

	result, err := p.Db.Exec(query, id, errorMessage)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (p *Postgres) FailStalePending(cutoff time.Time) ([]string, error) {
	// RETURNING hands the reaped IDs back so callers can invalidate any
	// caches still serving the items as pending.
	query := `
	UPDATE media_items
	SET error_message = 'upload never completed', state = 'failed', updated_at = CURRENT_TIMESTAMP
	WHERE state = 'pending' AND created_at < $1
	RETURNING id
	`

	rows, err := p.Db.Query(query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (p *Postgres) CreateUser(email, password string) (string, error) {
	var userID int
	query := `
	INSERT INTO users (email, password)
	VALUES ($1, $2)
	RETURNING id
	`

	err := p.Db.QueryRow(query, email, password).Scan(&userID)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%d", userID), nil
}

func (p *Postgres) GetUserByEmail(email string) (string, string, error) {
	var userID int
	var hashedPassword string
	query := `
	SELECT id, password FROM users WHERE email = $1
	`

	err := p.Db.QueryRow(query, email).Scan(&userID, &hashedPassword)
	if err != nil {
		return "", "", err
	}

	return fmt.Sprintf("%d", userID), hashedPassword, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (p *Postgres) scanMediaItem(row rowScanner) (types.MediaItem, error) {
	var item types.MediaItem
	var assetID, playbackID, errorMessage sql.NullString

	err := row.Scan(&item.ID, &item.OwnerID, &item.Title, &assetID, &playbackID,
		&item.State, &errorMessage, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.MediaItem{}, storage.ErrNotFound
		}
		return types.MediaItem{}, err
	}

	item.ExternalAssetID = assetID.String
	item.PlaybackID = playbackID.String
	item.ErrorMessage = errorMessage.String

	return item, nil
}
