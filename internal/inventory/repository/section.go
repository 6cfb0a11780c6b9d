package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/foodtrack/foodtrack-backend/pkg/database"
	"github.com/foodtrack/foodtrack-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Section is a physical location that holds stock: a kitchen, a storage
// room, a warehouse.
type Section struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SectionRepository handles section persistence
type SectionRepository struct {
	db *database.DB
}

// NewSectionRepository creates a new section repository
func NewSectionRepository(db *database.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// Create inserts a new section
func (r *SectionRepository) Create(ctx context.Context, section *Section) error {
	if section.ID == "" {
		section.ID = uuid.New().String()
	}

	query := `
		INSERT INTO sections (id, code, name)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`

	err := r.db.QueryRowxContext(ctx, query, section.ID, section.Code, section.Name).
		Scan(&section.CreatedAt)
	if isUniqueViolation(err) {
		return errors.Conflict("section code already in use")
	}
	return err
}

// GetByID gets a section by ID
func (r *SectionRepository) GetByID(ctx context.Context, id string) (*Section, error) {
	var section Section
	query := `SELECT id, code, name, created_at FROM sections WHERE id = $1`
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("section")
		}
		return nil, err
	}
	return &section, nil
}

// List returns all sections ordered by code
func (r *SectionRepository) List(ctx context.Context) ([]*Section, error) {
	var sections []*Section
	query := `SELECT id, code, name, created_at FROM sections ORDER BY code`
	if err := r.db.SelectContext(ctx, &sections, query); err != nil {
		return nil, err
	}
	return sections, nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// limitOffsetClause builds the trailing LIMIT/OFFSET placeholders given
// the number of parameters already bound.
func limitOffsetClause(bound int) string {
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", bound+1, bound+2)
}
