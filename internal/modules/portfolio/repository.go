// Package portfolio owns the simulated portfolio lifecycle: generation
// from an allocation plan, price refresh, risk-profile conversion and
// reset, backed by a SQLite repository.
package portfolio

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/cryptofolio/internal/domain"
)

// Repository persists portfolios. Holdings are stored as a JSON column:
// a portfolio is read and written whole, never partially.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new portfolio repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "portfolio").Logger(),
	}
}

// EnsureSchema creates the portfolios table if it does not exist.
func (r *Repository) EnsureSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS portfolios (
			id               TEXT PRIMARY KEY,
			name             TEXT NOT NULL,
			profile          TEXT NOT NULL,
			assets           TEXT NOT NULL,
			starting_capital REAL NOT NULL,
			total_value      REAL NOT NULL,
			profit_loss      REAL NOT NULL,
			profit_loss_pct  REAL NOT NULL,
			created_at       INTEGER NOT NULL,
			updated_at       INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create portfolios table: %w", err)
	}
	return nil
}

// Save upserts a portfolio.
func (r *Repository) Save(p *domain.Portfolio) error {
	assets, err := json.Marshal(p.Assets)
	if err != nil {
		return fmt.Errorf("failed to marshal portfolio assets: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO portfolios (
			id, name, profile, assets, starting_capital,
			total_value, profit_loss, profit_loss_pct, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name             = excluded.name,
			profile          = excluded.profile,
			assets           = excluded.assets,
			starting_capital = excluded.starting_capital,
			total_value      = excluded.total_value,
			profit_loss      = excluded.profit_loss,
			profit_loss_pct  = excluded.profit_loss_pct,
			updated_at       = excluded.updated_at
	`,
		p.ID, p.Name, string(p.Profile), string(assets), p.StartingCapital,
		p.TotalValue, p.ProfitLoss, p.ProfitLossPct,
		p.CreatedAt.Unix(), p.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save portfolio %s: %w", p.ID, err)
	}
	return nil
}

// GetByID loads one portfolio. Returns domain.ErrNotFound when absent.
func (r *Repository) GetByID(id string) (*domain.Portfolio, error) {
	row := r.db.QueryRow(`
		SELECT id, name, profile, assets, starting_capital,
		       total_value, profit_loss, profit_loss_pct, created_at, updated_at
		FROM portfolios WHERE id = ?
	`, id)

	p, err := scanPortfolio(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: portfolio %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio %s: %w", id, err)
	}
	return p, nil
}

// List returns all portfolios, most recently updated first.
func (r *Repository) List() ([]domain.Portfolio, error) {
	rows, err := r.db.Query(`
		SELECT id, name, profile, assets, starting_capital,
		       total_value, profit_loss, profit_loss_pct, created_at, updated_at
		FROM portfolios ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	defer rows.Close()

	var out []domain.Portfolio
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan portfolio row")
			continue
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Delete removes a portfolio. Returns domain.ErrNotFound when absent.
func (r *Repository) Delete(id string) error {
	res, err := r.db.Exec("DELETE FROM portfolios WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: portfolio %s", domain.ErrNotFound, id)
	}
	return nil
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPortfolio(row scanner) (*domain.Portfolio, error) {
	var (
		p          domain.Portfolio
		profile    string
		assetsJSON string
		createdAt  int64
		updatedAt  int64
	)
	err := row.Scan(
		&p.ID, &p.Name, &profile, &assetsJSON, &p.StartingCapital,
		&p.TotalValue, &p.ProfitLoss, &p.ProfitLossPct, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Profile = domain.RiskProfile(profile)
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	p.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	if err := json.Unmarshal([]byte(assetsJSON), &p.Assets); err != nil {
		return nil, fmt.Errorf("failed to unmarshal portfolio assets: %w", err)
	}
	return &p, nil
}
