package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/groupcart/catalog-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store on pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres connects a PostgresStore.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS listings (
	id            UUID PRIMARY KEY,
	platform      TEXT NOT NULL,
	canonical_url TEXT NOT NULL,
	url           TEXT NOT NULL,
	title         TEXT NOT NULL,
	image         TEXT NOT NULL DEFAULT '',
	price_text    TEXT NOT NULL DEFAULT '',
	moq_text      TEXT NOT NULL DEFAULT '',
	store_name    TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL DEFAULT '',
	rating        DOUBLE PRECISION NOT NULL DEFAULT 0,
	orders        INTEGER NOT NULL DEFAULT 0,
	parsed_price  DOUBLE PRECISION,
	parsed_moq    INTEGER,
	categories    TEXT[] NOT NULL DEFAULT '{}',
	terms         TEXT[] NOT NULL DEFAULT '{}',
	attr_count    INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (platform, canonical_url)
);
CREATE INDEX IF NOT EXISTS idx_listings_attr_count ON listings (attr_count, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_listings_categories ON listings USING GIN (categories);
`

// Migrate creates the listings schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

var listingColumns = []string{
	"id", "platform", "canonical_url", "url", "title", "image",
	"price_text", "moq_text", "store_name", "description", "rating",
	"orders", "parsed_price", "parsed_moq", "categories", "terms",
}

// UpsertListings bulk-writes records through a temp table: COPY into the
// temp table, then INSERT ... ON CONFLICT into listings. Category and term
// tags are merged with the existing row so repeated top-offs accumulate
// coverage labels instead of clobbering them.
func (s *PostgresStore) UpsertListings(ctx context.Context, records []model.SavedListingRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert: begin")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`CREATE TEMP TABLE _tmp_listings (LIKE listings INCLUDING DEFAULTS) ON COMMIT DROP`,
	); err != nil {
		return 0, eris.Wrap(err, "postgres: upsert: create temp table")
	}

	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, []any{
			uuid.NewString(), r.Platform.String(), r.CanonicalURL, r.URL,
			r.Title, r.Image, r.PriceText, r.MOQText, r.StoreName,
			r.Description, r.Rating, r.Orders, r.ParsedPrice, r.ParsedMOQ,
			r.Categories, r.Terms,
		})
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"_tmp_listings"}, listingColumns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrap(err, "postgres: upsert: copy")
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO listings (id, platform, canonical_url, url, title, image,
			price_text, moq_text, store_name, description, rating, orders,
			parsed_price, parsed_moq, categories, terms)
		SELECT id, platform, canonical_url, url, title, image,
			price_text, moq_text, store_name, description, rating, orders,
			parsed_price, parsed_moq, categories, terms
		FROM _tmp_listings
		ON CONFLICT (platform, canonical_url) DO UPDATE SET
			url = EXCLUDED.url,
			title = EXCLUDED.title,
			image = EXCLUDED.image,
			price_text = EXCLUDED.price_text,
			moq_text = EXCLUDED.moq_text,
			store_name = EXCLUDED.store_name,
			description = EXCLUDED.description,
			rating = EXCLUDED.rating,
			orders = EXCLUDED.orders,
			parsed_price = EXCLUDED.parsed_price,
			parsed_moq = EXCLUDED.parsed_moq,
			categories = ARRAY(SELECT DISTINCT unnest(listings.categories || EXCLUDED.categories)),
			terms = ARRAY(SELECT DISTINCT unnest(listings.terms || EXCLUDED.terms)),
			updated_at = now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert: insert")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: upsert: commit")
	}
	return int(tag.RowsAffected()), nil
}

// CountListings counts rows matching the filter.
func (s *PostgresStore) CountListings(ctx context.Context, f Filter) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM listings
		WHERE ($1 = '' OR platform = $1)
		  AND ($2 = '' OR $2 = ANY(categories))`,
		selectorArg(f.Platform), f.Category,
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: count listings")
	}
	return n, nil
}

// ListListings pages rows matching the filter, newest first.
func (s *PostgresStore) ListListings(ctx context.Context, f Filter, limit, offset int) ([]model.SavedListingRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT platform, canonical_url, url, title, image, price_text,
			moq_text, store_name, description, rating, orders,
			parsed_price, parsed_moq, categories, terms
		FROM listings
		WHERE ($1 = '' OR platform = $1)
		  AND ($2 = '' OR $2 = ANY(categories))
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		selectorArg(f.Platform), f.Category, limit, offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list listings")
	}
	defer rows.Close()

	var out []model.SavedListingRecord
	for rows.Next() {
		var r model.SavedListingRecord
		var platform string
		if err := rows.Scan(&platform, &r.CanonicalURL, &r.URL, &r.Title,
			&r.Image, &r.PriceText, &r.MOQText, &r.StoreName, &r.Description,
			&r.Rating, &r.Orders, &r.ParsedPrice, &r.ParsedMOQ,
			&r.Categories, &r.Terms); err != nil {
			return nil, eris.Wrap(err, "postgres: scan listing")
		}
		r.Platform = model.Platform(platform)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list listings rows")
}

// CountNeedingEnrichment counts attribute-poor rows.
func (s *PostgresStore) CountNeedingEnrichment(ctx context.Context, minAttrs int) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM listings WHERE attr_count < $1`, minAttrs,
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: count needing enrichment")
	}
	return n, nil
}

// ListNeedingEnrichment pages attribute-poor rows, newest first.
func (s *PostgresStore) ListNeedingEnrichment(ctx context.Context, minAttrs, limit, offset int) ([]ListingRef, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, platform, canonical_url, created_at FROM listings
		WHERE attr_count < $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		minAttrs, limit, offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list needing enrichment")
	}
	defer rows.Close()

	var out []ListingRef
	for rows.Next() {
		var ref ListingRef
		var platform string
		if err := rows.Scan(&ref.ID, &platform, &ref.CanonicalURL, &ref.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan listing ref")
		}
		ref.Platform = model.Platform(platform)
		out = append(out, ref)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list needing enrichment rows")
}

// SetAttributeCount records an enrichment outcome.
func (s *PostgresStore) SetAttributeCount(ctx context.Context, id string, attrs int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE listings SET attr_count = $1, updated_at = now() WHERE id = $2`,
		attrs, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set attribute count for %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: listing %s not found", id)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// selectorArg maps the all-platforms selector to the empty match-all
// argument.
func selectorArg(p model.Platform) string {
	if p == model.PlatformAll {
		return ""
	}
	return p.String()
}
