package storage

import (
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/example/carwatch/internal/models"
)

type PostgresLog struct {
	db *sql.DB
}

func NewPostgresLog(dsn string) (*PostgresLog, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresLog{db: db}, nil
}

func (p *PostgresLog) Record(d *models.Delivery) error {
	_, err := p.db.Exec(`INSERT INTO deliveries(subscription_id, city, title, body, succeeded, at) VALUES($1,$2,$3,$4,$5,$6)`,
		d.SubscriptionID, d.City, d.Title, d.Body, d.Succeeded, d.At)
	return err
}

func (p *PostgresLog) Close() error { return p.db.Close() }
