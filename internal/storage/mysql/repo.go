package mysql

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/cockroachdb/errors"

	"swipestay/internal/domain"
)

// Repo stores one shortlist per owner as a JSON array of hotels.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

// Load returns the saved shortlist; an unknown owner has an empty one.
func (r *Repo) Load(ctx context.Context, owner string) ([]domain.Hotel, error) {
	var raw []byte
	if err := r.db.QueryRowContext(ctx, getShortlistSQL, owner).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []domain.Hotel{}, nil
		}
		return nil, errors.Wrapf(err, "load shortlist %s", owner)
	}
	out := []domain.Hotel{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.Wrapf(err, "decode shortlist %s", owner)
	}
	return out, nil
}

func (r *Repo) Save(ctx context.Context, owner string, hotels []domain.Hotel) error {
	if hotels == nil {
		hotels = []domain.Hotel{}
	}
	b, err := json.Marshal(hotels)
	if err != nil {
		return errors.Wrap(err, "encode shortlist")
	}
	if _, err := r.db.ExecContext(ctx, upsertShortlistSQL, owner, string(b), len(hotels)); err != nil {
		return errors.Wrapf(err, "save shortlist %s", owner)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, owner string) error {
	_, err := r.db.ExecContext(ctx, deleteShortlistSQL, owner)
	return err
}
