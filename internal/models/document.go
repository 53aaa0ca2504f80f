package models

import (
	"time"
)

// Document is an opaque JSON body stored under a string key.
type Document struct {
	Key       string    `json:"key" gorm:"primaryKey;column:doc_key"`
	Body      string    `json:"body" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Document Model
func (Document) TableName() string {
	return "documents"
}
