package journal

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"futures-trader-go/ledger"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordOrder(orderID, instrument, side string, quantity int, price float64) error {
	_, err := j.db.Exec(`
		INSERT INTO orders (order_id, instrument, side, quantity, price, created)
		VALUES (?, ?, ?, ?, ?, ?)`,
		orderID, instrument, side, quantity, price, time.Now().UTC(),
	)
	return err
}

func (j *SQLiteJournal) RecordFill(f ledger.Fill) error {
	_, err := j.db.Exec(`
		INSERT INTO fills (instrument, quantity, price, filled_at)
		VALUES (?, ?, ?, ?)`,
		f.Instrument, f.Quantity, f.Price, f.Timestamp,
	)
	return err
}

func (j *SQLiteJournal) RecordEquity(balance, equity float64) error {
	_, err := j.db.Exec(`
		INSERT INTO equity (time, balance, equity)
		VALUES (?, ?, ?)`,
		time.Now().UTC(), balance, equity,
	)
	return err
}

func (j *SQLiteJournal) RecordRiskEvent(reason string, equity, threshold float64) error {
	_, err := j.db.Exec(`
		INSERT INTO risk_events (time, reason, equity, threshold)
		VALUES (?, ?, ?, ?)`,
		time.Now().UTC(), reason, equity, threshold,
	)
	return err
}

func (j *SQLiteJournal) RecordSession(event string, balance float64) error {
	_, err := j.db.Exec(`
		INSERT INTO sessions (time, event, balance)
		VALUES (?, ?, ?)`,
		time.Now().UTC(), event, balance,
	)
	return err
}

// Fills returns the fill history for one instrument, oldest first.
func (j *SQLiteJournal) Fills(instrument string) ([]FillRecord, error) {
	rows, err := j.db.Query(`
		SELECT instrument, quantity, price, filled_at
		FROM fills WHERE instrument = ? ORDER BY id`,
		instrument,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FillRecord
	for rows.Next() {
		var f FillRecord
		if err := rows.Scan(&f.Instrument, &f.Quantity, &f.Price, &f.FilledAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// EquityCurve returns all equity snapshots, oldest first.
func (j *SQLiteJournal) EquityCurve() ([]EquitySnapshot, error) {
	rows, err := j.db.Query(`
		SELECT time, balance, equity FROM equity ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(&e.Time, &e.Balance, &e.Equity); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// RiskEvents returns all recorded risk events, oldest first.
func (j *SQLiteJournal) RiskEvents() ([]RiskEventRecord, error) {
	rows, err := j.db.Query(`
		SELECT time, reason, equity, threshold FROM risk_events ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RiskEventRecord
	for rows.Next() {
		var r RiskEventRecord
		if err := rows.Scan(&r.Time, &r.Reason, &r.Equity, &r.Threshold); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Sessions returns the session lifecycle log, oldest first.
func (j *SQLiteJournal) Sessions() ([]SessionRecord, error) {
	rows, err := j.db.Query(`
		SELECT time, event, balance FROM sessions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var s SessionRecord
		if err := rows.Scan(&s.Time, &s.Event, &s.Balance); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// OrderCount reports how many orders were journaled.
func (j *SQLiteJournal) OrderCount() (int, error) {
	var n int
	err := j.db.QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&n)
	return n, err
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
