package models

import (
	"time"

	"github.com/google/uuid"
)

// Credential binds one sign-in method to a user. A (kind, subject_id) pair is
// globally unique: the same Google subject can never be linked to two accounts.
type Credential struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Kind      string    `gorm:"size:50;not null;uniqueIndex:idx_credentials_kind_subject" json:"kind"`
	SubjectID string    `gorm:"size:255;not null;uniqueIndex:idx_credentials_kind_subject" json:"subject_id"`
	CreatedAt time.Time `json:"created_at"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
}
