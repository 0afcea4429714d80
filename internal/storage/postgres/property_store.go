package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"homescope/server/internal/models"
	"homescope/server/internal/storage"
)

// PropertyStore implements storage.PropertyStore using PostgreSQL.
type PropertyStore struct {
	pool *Pool
}

// NewPropertyStore creates a new PropertyStore.
func NewPropertyStore(pool *Pool) *PropertyStore {
	return &PropertyStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PropertyStore = (*PropertyStore)(nil)

const propertyColumns = `
	id, address, city, state, postal_code, price, bedrooms, bathrooms, square_feet,
	property_type, status, year_built, pool, waterfront, photos, latitude, longitude,
	created_at, updated_at
`

// GetProperty retrieves a property by ID. Returns ErrNotFound if not exists.
func (s *PropertyStore) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE id = $1`

	p, err := scanProperty(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get property by id: %w", err)
	}
	return p, nil
}

// FindCandidates returns properties inside the criteria bands ordered by price.
func (s *PropertyStore) FindCandidates(ctx context.Context, criteria models.CandidateCriteria) ([]models.Property, error) {
	if criteria.Limit <= 0 {
		return []models.Property{}, nil
	}

	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	where = append(where,
		fmt.Sprintf("price BETWEEN %s AND %s", arg(criteria.MinPrice), arg(criteria.MaxPrice)),
		fmt.Sprintf("bedrooms BETWEEN %s AND %s", arg(criteria.MinBedrooms), arg(criteria.MaxBedrooms)),
	)
	if criteria.City != "" {
		where = append(where, "city = "+arg(criteria.City))
	}
	if len(criteria.Statuses) > 0 {
		where = append(where, fmt.Sprintf("status = ANY(%s)", arg(criteria.StatusStrings())))
	}
	if len(criteria.ExcludeIDs) > 0 {
		where = append(where, fmt.Sprintf("NOT (id = ANY(%s))", arg(criteria.ExcludeIDs)))
	}

	query := `SELECT ` + propertyColumns + ` FROM properties WHERE ` +
		strings.Join(where, " AND ") +
		` ORDER BY price ASC, id ASC LIMIT ` + arg(criteria.Limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find candidates: %w", err)
	}
	defer rows.Close()

	return scanProperties(rows)
}

// ListProperties returns properties filtered by city and status ordered by price.
func (s *PropertyStore) ListProperties(ctx context.Context, filter models.ListFilter) ([]models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties
		WHERE ($1 = '' OR LOWER(city) = LOWER($1))
		AND ($2 = '' OR status = $2)
		ORDER BY price ASC, id ASC`
	args := []any{filter.City, string(filter.Status)}
	if filter.Limit > 0 {
		query += ` LIMIT $3`
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	return scanProperties(rows)
}

// CreateProperty inserts a new property. Returns ErrDuplicateKey if the ID exists.
func (s *PropertyStore) CreateProperty(ctx context.Context, p *models.Property) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.EnsureID()

	query := `
		INSERT INTO properties (
			id, address, city, state, postal_code, price, bedrooms, bathrooms, square_feet,
			property_type, status, year_built, pool, waterfront, photos, latitude, longitude
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at, updated_at
	`
	err := s.pool.QueryRow(ctx, query, insertArgs(p)...).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert property: %w", err)
	}
	return nil
}

// UpsertProperties writes the batch in one transaction, replacing rows by ID.
func (s *PropertyStore) UpsertProperties(ctx context.Context, batch []*models.Property) error {
	for _, p := range batch {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("property %q: %w", p.ID, err)
		}
		p.EnsureID()
	}

	query := `
		INSERT INTO properties (
			id, address, city, state, postal_code, price, bedrooms, bathrooms, square_feet,
			property_type, status, year_built, pool, waterfront, photos, latitude, longitude
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			address = EXCLUDED.address,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			postal_code = EXCLUDED.postal_code,
			price = EXCLUDED.price,
			bedrooms = EXCLUDED.bedrooms,
			bathrooms = EXCLUDED.bathrooms,
			square_feet = EXCLUDED.square_feet,
			property_type = EXCLUDED.property_type,
			status = EXCLUDED.status,
			year_built = EXCLUDED.year_built,
			pool = EXCLUDED.pool,
			waterfront = EXCLUDED.waterfront,
			photos = EXCLUDED.photos,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			updated_at = NOW()
	`

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		b := &pgx.Batch{}
		for _, p := range batch {
			b.Queue(query, insertArgs(p)...)
		}
		if err := tx.SendBatch(ctx, b).Close(); err != nil {
			return fmt.Errorf("upsert properties: %w", err)
		}
		return nil
	})
}

// Ping verifies the pool can reach the server.
func (s *PropertyStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *PropertyStore) Close() error {
	s.pool.Close()
	return nil
}

func insertArgs(p *models.Property) []any {
	photos := p.Photos
	if photos == nil {
		photos = []string{}
	}
	return []any{
		p.ID, p.Address, p.City, p.State, p.PostalCode, p.Price, p.Bedrooms, p.Bathrooms, p.SquareFeet,
		string(p.PropertyType), string(p.Status), p.YearBuilt, p.Pool, p.Waterfront, photos, p.Latitude, p.Longitude,
	}
}

// scanProperty scans a single row into a Property.
func scanProperty(row pgx.Row) (*models.Property, error) {
	var (
		p            models.Property
		propertyType string
		status       string
	)

	err := row.Scan(
		&p.ID,
		&p.Address,
		&p.City,
		&p.State,
		&p.PostalCode,
		&p.Price,
		&p.Bedrooms,
		&p.Bathrooms,
		&p.SquareFeet,
		&propertyType,
		&status,
		&p.YearBuilt,
		&p.Pool,
		&p.Waterfront,
		&p.Photos,
		&p.Latitude,
		&p.Longitude,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.PropertyType = models.PropertyType(propertyType)
	p.Status = models.Status(status)
	return &p, nil
}

// scanProperties scans multiple rows into a slice of Property.
func scanProperties(rows pgx.Rows) ([]models.Property, error) {
	properties := []models.Property{}

	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("scan property row: %w", err)
		}
		properties = append(properties, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate property rows: %w", err)
	}

	return properties, nil
}
