package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ListKeywords returns exception keyword sets, skipping disabled ones
// unless includeDisabled is set.
func (s *Store) ListKeywords(ctx context.Context, includeDisabled bool) ([]Keyword, error) {
	query := `SELECT id, terms_json, label, behavior, enabled FROM exception_keywords`
	if !includeDisabled {
		query += ` WHERE enabled = 1`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list keywords: %w", err)
	}
	defer rows.Close()

	var keywords []Keyword
	for rows.Next() {
		var (
			kw       Keyword
			termsRaw string
			enabled  int
		)
		if err := rows.Scan(&kw.ID, &termsRaw, &kw.Label, &kw.Behavior, &enabled); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(termsRaw), &kw.Terms); err != nil {
			return nil, fmt.Errorf("parse keyword terms: %w", err)
		}
		kw.Enabled = enabled != 0
		keywords = append(keywords, kw)
	}
	return keywords, rows.Err()
}

// SaveKeyword inserts or updates an exception keyword set.
func (s *Store) SaveKeyword(ctx context.Context, kw *Keyword) (int64, error) {
	if kw == nil {
		return 0, errors.New("keyword is nil")
	}
	terms, err := json.Marshal(kw.Terms)
	if err != nil {
		return 0, fmt.Errorf("marshal keyword terms: %w", err)
	}

	if kw.ID == 0 {
		res, err := s.db.ExecContext(
			ctx,
			`INSERT INTO exception_keywords (terms_json, label, behavior, enabled) VALUES (?, ?, ?, ?)`,
			string(terms), kw.Label, kw.Behavior, boolToInt(kw.Enabled),
		)
		if err != nil {
			return 0, fmt.Errorf("insert keyword: %w", err)
		}
		return res.LastInsertId()
	}

	_, err = s.db.ExecContext(
		ctx,
		`UPDATE exception_keywords SET terms_json = ?, label = ?, behavior = ?, enabled = ? WHERE id = ?`,
		string(terms), kw.Label, kw.Behavior, boolToInt(kw.Enabled), kw.ID,
	)
	if err != nil {
		return 0, fmt.Errorf("update keyword: %w", err)
	}
	return kw.ID, nil
}
