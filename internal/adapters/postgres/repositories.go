package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"trustscan/internal/domain"
)

// domainID returns the id of registrable, creating the row on first sight.
func (db *DB) domainID(ctx context.Context, registrable string) (string, error) {
	var id string
	err := db.Pool.QueryRow(ctx, `
        INSERT INTO domains (registrable_domain)
        VALUES ($1)
        ON CONFLICT (registrable_domain) DO UPDATE SET registrable_domain = EXCLUDED.registrable_domain
        RETURNING id::text
    `, strings.ToLower(registrable)).Scan(&id)
	return id, err
}

// Save records one computed scan. The full result is kept as jsonb.
func (db *DB) Save(ctx context.Context, target domain.ScanTarget, result domain.ScanResult) error {
	id, err := db.domainID(ctx, target.Registrable)
	if err != nil {
		return err
	}
	_, err = db.Pool.Exec(ctx, `
        INSERT INTO scan_results (domain_id, hostname, score, risk_level, confidence, result, scanned_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, id, target.Hostname, result.Score, string(result.RiskLevel), string(result.Confidence), result, result.ScannedAt)
	return err
}

func (db *DB) LatestByDomain(ctx context.Context, registrable string) (domain.ScanResult, bool, error) {
	var out domain.ScanResult
	err := db.Pool.QueryRow(ctx, `
        SELECT r.result
        FROM scan_results r
        JOIN domains d ON d.id = r.domain_id
        WHERE d.registrable_domain = $1
        ORDER BY r.scanned_at DESC
        LIMIT 1
    `, strings.ToLower(registrable)).Scan(&out)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ScanResult{}, false, nil
	}
	if err != nil {
		return domain.ScanResult{}, false, err
	}
	return out, true, nil
}
