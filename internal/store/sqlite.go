package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/groupcart/catalog-cli/internal/model"
)

// SQLiteStore implements Store on a local sqlite file for development and
// single-host runs.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (and creates if missing) a sqlite-backed store.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: open %s", path)
	}
	// modernc sqlite is single-writer; serialize access through one conn.
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db}, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS listings (
	id            TEXT PRIMARY KEY,
	platform      TEXT NOT NULL,
	canonical_url TEXT NOT NULL,
	url           TEXT NOT NULL,
	title         TEXT NOT NULL,
	image         TEXT NOT NULL DEFAULT '',
	price_text    TEXT NOT NULL DEFAULT '',
	moq_text      TEXT NOT NULL DEFAULT '',
	store_name    TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL DEFAULT '',
	rating        REAL NOT NULL DEFAULT 0,
	orders        INTEGER NOT NULL DEFAULT 0,
	parsed_price  REAL,
	parsed_moq    INTEGER,
	categories    TEXT NOT NULL DEFAULT '[]',
	terms         TEXT NOT NULL DEFAULT '[]',
	attr_count    INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (platform, canonical_url)
);
CREATE INDEX IF NOT EXISTS idx_listings_attr_count ON listings (attr_count, created_at DESC);
`

// Migrate creates the listings schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return nil
}

// UpsertListings writes records one statement at a time inside a
// transaction. Tag merging happens in Go since sqlite has no array type;
// categories and terms live as JSON text.
func (s *SQLiteStore) UpsertListings(ctx context.Context, records []model.SavedListingRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert: begin")
	}
	defer tx.Rollback()

	written := 0
	for _, r := range records {
		existing, err := s.tagsFor(ctx, tx, r.Platform, r.CanonicalURL)
		if err != nil {
			return 0, err
		}
		cats := mergeTags(existing.categories, r.Categories)
		terms := mergeTags(existing.terms, r.Terms)

		catsJSON, _ := json.Marshal(cats)
		termsJSON, _ := json.Marshal(terms)

		_, err = tx.ExecContext(ctx, `
			INSERT INTO listings (id, platform, canonical_url, url, title, image,
				price_text, moq_text, store_name, description, rating, orders,
				parsed_price, parsed_moq, categories, terms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (platform, canonical_url) DO UPDATE SET
				url = excluded.url,
				title = excluded.title,
				image = excluded.image,
				price_text = excluded.price_text,
				moq_text = excluded.moq_text,
				store_name = excluded.store_name,
				description = excluded.description,
				rating = excluded.rating,
				orders = excluded.orders,
				parsed_price = excluded.parsed_price,
				parsed_moq = excluded.parsed_moq,
				categories = excluded.categories,
				terms = excluded.terms,
				updated_at = CURRENT_TIMESTAMP`,
			uuid.NewString(), r.Platform.String(), r.CanonicalURL, r.URL,
			r.Title, r.Image, r.PriceText, r.MOQText, r.StoreName,
			r.Description, r.Rating, r.Orders, r.ParsedPrice, r.ParsedMOQ,
			string(catsJSON), string(termsJSON),
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert %s", r.CanonicalURL)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert: commit")
	}
	return written, nil
}

type storedTags struct {
	categories []string
	terms      []string
}

func (s *SQLiteStore) tagsFor(ctx context.Context, tx *sql.Tx, platform model.Platform, canonicalURL string) (storedTags, error) {
	var catsJSON, termsJSON string
	err := tx.QueryRowContext(ctx,
		`SELECT categories, terms FROM listings WHERE platform = ? AND canonical_url = ?`,
		platform.String(), canonicalURL,
	).Scan(&catsJSON, &termsJSON)
	if err == sql.ErrNoRows {
		return storedTags{}, nil
	}
	if err != nil {
		return storedTags{}, eris.Wrap(err, "sqlite: read tags")
	}

	var tags storedTags
	_ = json.Unmarshal([]byte(catsJSON), &tags.categories)
	_ = json.Unmarshal([]byte(termsJSON), &tags.terms)
	return tags, nil
}

func mergeTags(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	out := make([]string, 0, len(existing)+len(incoming))
	for _, t := range existing {
		if _, dup := seen[t]; !dup {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	for _, t := range incoming {
		if _, dup := seen[t]; !dup {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// CountListings counts rows matching the filter. Category matching walks
// the JSON tag array.
func (s *SQLiteStore) CountListings(ctx context.Context, f Filter) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM listings
		WHERE (? = '' OR platform = ?)
		  AND (? = '' OR EXISTS (
			SELECT 1 FROM json_each(listings.categories) WHERE json_each.value = ?))`,
		selectorArg(f.Platform), selectorArg(f.Platform), f.Category, f.Category,
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: count listings")
	}
	return n, nil
}

// ListListings pages rows matching the filter, newest first.
func (s *SQLiteStore) ListListings(ctx context.Context, f Filter, limit, offset int) ([]model.SavedListingRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT platform, canonical_url, url, title, image, price_text,
			moq_text, store_name, description, rating, orders,
			parsed_price, parsed_moq, categories, terms
		FROM listings
		WHERE (? = '' OR platform = ?)
		  AND (? = '' OR EXISTS (
			SELECT 1 FROM json_each(listings.categories) WHERE json_each.value = ?))
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`,
		selectorArg(f.Platform), selectorArg(f.Platform), f.Category, f.Category,
		limit, offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list listings")
	}
	defer rows.Close()

	var out []model.SavedListingRecord
	for rows.Next() {
		var r model.SavedListingRecord
		var platform, catsJSON, termsJSON string
		if err := rows.Scan(&platform, &r.CanonicalURL, &r.URL, &r.Title,
			&r.Image, &r.PriceText, &r.MOQText, &r.StoreName, &r.Description,
			&r.Rating, &r.Orders, &r.ParsedPrice, &r.ParsedMOQ,
			&catsJSON, &termsJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan listing")
		}
		r.Platform = model.Platform(platform)
		_ = json.Unmarshal([]byte(catsJSON), &r.Categories)
		_ = json.Unmarshal([]byte(termsJSON), &r.Terms)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list listings rows")
}

// CountNeedingEnrichment counts attribute-poor rows.
func (s *SQLiteStore) CountNeedingEnrichment(ctx context.Context, minAttrs int) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM listings WHERE attr_count < ?`, minAttrs,
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: count needing enrichment")
	}
	return n, nil
}

// ListNeedingEnrichment pages attribute-poor rows, newest first.
func (s *SQLiteStore) ListNeedingEnrichment(ctx context.Context, minAttrs, limit, offset int) ([]ListingRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, platform, canonical_url, created_at FROM listings
		WHERE attr_count < ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`,
		minAttrs, limit, offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list needing enrichment")
	}
	defer rows.Close()

	var out []ListingRef
	for rows.Next() {
		var ref ListingRef
		var platform string
		if err := rows.Scan(&ref.ID, &platform, &ref.CanonicalURL, &ref.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan listing ref")
		}
		ref.Platform = model.Platform(platform)
		out = append(out, ref)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list needing enrichment rows")
}

// SetAttributeCount records an enrichment outcome.
func (s *SQLiteStore) SetAttributeCount(ctx context.Context, id string, attrs int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE listings SET attr_count = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		attrs, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set attribute count for %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Errorf("sqlite: listing %s not found", id)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
