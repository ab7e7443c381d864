package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentRecord is the row backing one document.
type DocumentRecord struct {
	Collection string         `gorm:"primaryKey;size:100"`
	DocID      string         `gorm:"primaryKey;size:191;column:doc_id"`
	Data       datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"`
	UpdatedAt  time.Time
}

func (DocumentRecord) TableName() string {
	return "documents"
}

// PostgresStore implements Store on a jsonb column; merge semantics come from
// the || operator in the upsert, so concurrent writers never clobber fields
// they did not name.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var rec DocumentRecord
	err := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, classify("get", err)
	}

	doc := Document{}
	if err := json.Unmarshal(rec.Data, &doc); err != nil {
		return nil, &Error{Kind: KindInternal, Op: "get", Err: err}
	}
	return doc, nil
}

func (s *PostgresStore) MergeWrite(ctx context.Context, collection, id string, fields Document) error {
	payload, err := json.Marshal(fields)
	if err != nil {
		return &Error{Kind: KindInternal, Op: "merge-write", Err: err}
	}

	rec := DocumentRecord{
		Collection: collection,
		DocID:      id,
		Data:       datatypes.JSON(payload),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "collection"}, {Name: "doc_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"data":       gorm.Expr("documents.data || excluded.data"),
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&rec).Error
	if err != nil {
		return classify("merge-write", err)
	}
	return nil
}

// classify maps driver errors onto the store taxonomy. SQLSTATE classes 08
// (connection), 53 (insufficient resources) and 57 (operator intervention,
// includes shutdown) are transient; 42501 and class 28 are authorization.
func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code := pgErr.Code
		switch {
		case code == "42501" || strings.HasPrefix(code, "28"):
			return &Error{Kind: KindPermission, Op: op, Err: err}
		case strings.HasPrefix(code, "08") || strings.HasPrefix(code, "53") || strings.HasPrefix(code, "57"):
			return &Error{Kind: KindTransient, Op: op, Err: err}
		default:
			return &Error{Kind: KindInternal, Op: op, Err: err}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: KindTransient, Op: op, Err: err}
	}
	// No SQLSTATE at all means the server was never reached.
	return &Error{Kind: KindTransient, Op: op, Err: err}
}
