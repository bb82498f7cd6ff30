package promoted

import (
	"context"
	"fmt"
	"strconv"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const promotedTable = "promoted_results"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresLoader reads active promoted entries, highest bid first.
type PostgresLoader struct {
	pool *pgxpool.Pool
}

func NewPostgresLoader(ctx context.Context, databaseURL string) (*PostgresLoader, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect promoted database: %w", err)
	}
	return &PostgresLoader{pool: pool}, nil
}

func (l *PostgresLoader) Close() {
	l.pool.Close()
}

func selectActive() sq.SelectBuilder {
	return psql.
		Select("id", "title", "url", "COALESCE(display_url, '')", "COALESCE(content, '')", "trigger_keywords", "COALESCE(bid_amount, 0)").
		From(promotedTable).
		Where(sq.Eq{"active": true}).
		OrderBy("bid_amount DESC NULLS LAST", "id")
}

func (l *PostgresLoader) Load(ctx context.Context) ([]Promoted, error) {
	query, args, err := selectActive().ToSql()
	if err != nil {
		return nil, fmt.Errorf("build promoted query: %w", err)
	}
	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query promoted results: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Promoted, error) {
		var (
			p  Promoted
			id int64
		)
		if err := row.Scan(&id, &p.Title, &p.URL, &p.DisplayURL, &p.Content, &p.TriggerKeywords, &p.BidAmount); err != nil {
			return Promoted{}, err
		}
		p.ID = strconv.FormatInt(id, 10)
		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan promoted results: %w", err)
	}
	return entries, nil
}
