package repository

import (
	"context"
	"fmt"

	"github.com/jakesanders16/mini-youtube/internal/model"
	"github.com/jakesanders16/mini-youtube/internal/pkg/db"
)

// GymRepository handles gym persistence.
type GymRepository struct {
	db db.DBTX
}

// NewGymRepository creates a new GymRepository instance.
func NewGymRepository(q db.DBTX) *GymRepository {
	return &GymRepository{db: q}
}

// Create inserts a gym. Names are unique.
func (r *GymRepository) Create(ctx context.Context, name string, city *string) (*model.Gym, error) {
	const query = `
		INSERT INTO gyms (name, city)
		VALUES ($1, $2)
		RETURNING id, name, city, created_at
	`

	var g model.Gym
	err := r.db.QueryRow(ctx, query, name, city).Scan(&g.ID, &g.Name, &g.City, &g.CreatedAt)
	if err != nil {
		return nil, mapError(err, nil, "create gym")
	}
	return &g, nil
}

// GetByID retrieves a gym.
func (r *GymRepository) GetByID(ctx context.Context, id int64) (*model.Gym, error) {
	const query = `SELECT id, name, city, created_at FROM gyms WHERE id = $1`

	var g model.Gym
	err := r.db.QueryRow(ctx, query, id).Scan(&g.ID, &g.Name, &g.City, &g.CreatedAt)
	if err != nil {
		return nil, mapError(err, ErrGymNotFound, "get gym")
	}
	return &g, nil
}

// List returns all gyms by name.
func (r *GymRepository) List(ctx context.Context) ([]*model.Gym, error) {
	const query = `SELECT id, name, city, created_at FROM gyms ORDER BY name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list gyms: %w", err)
	}
	defer rows.Close()

	var gyms []*model.Gym
	for rows.Next() {
		var g model.Gym
		if err := rows.Scan(&g.ID, &g.Name, &g.City, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan gym: %w", err)
		}
		gyms = append(gyms, &g)
	}
	return gyms, rows.Err()
}
