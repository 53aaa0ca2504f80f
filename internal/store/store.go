package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"anitrack-api/internal/models"

	"gorm.io/gorm"
)

// ErrNotFound is returned when no document exists under a key.
var ErrNotFound = errors.New("document not found")

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Store reads and writes documents through gorm.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Get returns the document stored under key.
func (s *Store) Get(ctx context.Context, key string) (models.Document, error) {
	var doc models.Document
	err := s.db.WithContext(ctx).Where("doc_key = ?", key).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Document{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return models.Document{}, fmt.Errorf("get document %s: %w", key, err)
	}
	return doc, nil
}

// List returns documents whose key starts with prefix, ordered by key.
// limit is clamped to [1, MaxListLimit]; zero means DefaultListLimit.
func (s *Store) List(ctx context.Context, prefix string, limit int) ([]models.Document, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	docs := make([]models.Document, 0)
	err := s.db.WithContext(ctx).
		Where(`doc_key LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%").
		Order("doc_key asc").
		Limit(limit).
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("list documents with prefix %q: %w", prefix, err)
	}
	return docs, nil
}

// Put creates or replaces the body under key and reports whether it created it.
func (s *Store) Put(ctx context.Context, key, body string) (models.Document, bool, error) {
	var doc models.Document
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("doc_key = ?", key).First(&doc).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			doc = models.Document{Key: key, Body: body}
			created = true
			return tx.Create(&doc).Error
		case err != nil:
			return err
		}
		doc.Body = body
		return tx.Save(&doc).Error
	})
	if err != nil {
		return models.Document{}, false, fmt.Errorf("put document %s: %w", key, err)
	}
	return doc, created, nil
}

// Delete removes the document under key and reports whether one existed.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	res := s.db.WithContext(ctx).Where("doc_key = ?", key).Delete(&models.Document{})
	if res.Error != nil {
		return false, fmt.Errorf("delete document %s: %w", key, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
