package db

import (
	"context"

	"koperasi-server/src/models"
)

func GetMasters(ctx context.Context, pool DB) ([]models.Master, error) {
	query := `SELECT id, name, active, created_at FROM masters ORDER BY id`

	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var masters []models.Master
	for rows.Next() {
		var m models.Master
		if err := rows.Scan(&m.ID, &m.Name, &m.Active, &m.CreatedAt); err != nil {
			return nil, err
		}
		masters = append(masters, m)
	}
	return masters, rows.Err()
}

func GetSubmenus(ctx context.Context, pool DB) ([]models.Submenu, error) {
	query := `
		SELECT s.id, s.master_id, s.name, s.active, s.created_at, m.name
		FROM submenus s
		JOIN masters m ON s.master_id = m.id
		ORDER BY s.id
	`

	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var submenus []models.Submenu
	for rows.Next() {
		var s models.Submenu
		if err := rows.Scan(&s.ID, &s.MasterID, &s.Name, &s.Active, &s.CreatedAt, &s.MasterName); err != nil {
			return nil, err
		}
		submenus = append(submenus, s)
	}
	return submenus, rows.Err()
}

func GetSubmenusByMaster(ctx context.Context, pool DB, master models.MasterName) ([]models.Submenu, error) {
	query := `
		SELECT s.id, s.master_id, s.name, s.active, s.created_at, m.name
		FROM submenus s
		JOIN masters m ON s.master_id = m.id
		WHERE m.name = $1 AND s.active = TRUE
		ORDER BY s.id
	`

	rows, err := pool.Query(ctx, query, master)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var submenus []models.Submenu
	for rows.Next() {
		var s models.Submenu
		if err := rows.Scan(&s.ID, &s.MasterID, &s.Name, &s.Active, &s.CreatedAt, &s.MasterName); err != nil {
			return nil, err
		}
		submenus = append(submenus, s)
	}
	return submenus, rows.Err()
}
