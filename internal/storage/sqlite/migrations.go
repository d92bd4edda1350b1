package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist. Donor entries keep their
// insertion position so the history stays an ordered, append-only
// sequence.
const schema = `
CREATE TABLE IF NOT EXISTS funds (
    id INTEGER PRIMARY KEY,
    owner TEXT NOT NULL,
    status TEXT NOT NULL,
    total_raised INTEGER NOT NULL DEFAULT 0,
    released INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS milestones (
    fund_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    percent INTEGER NOT NULL,
    paid INTEGER NOT NULL DEFAULT 0,
    position INTEGER NOT NULL,
    PRIMARY KEY (fund_id, name),
    FOREIGN KEY (fund_id) REFERENCES funds(id)
);

CREATE TABLE IF NOT EXISTS donors (
    fund_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    contributor TEXT NOT NULL,
    amount INTEGER NOT NULL,
    PRIMARY KEY (fund_id, position),
    FOREIGN KEY (fund_id) REFERENCES funds(id)
);

CREATE TABLE IF NOT EXISTS contributions (
    fund_id INTEGER NOT NULL,
    contributor TEXT NOT NULL,
    balance INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (fund_id, contributor),
    FOREIGN KEY (fund_id) REFERENCES funds(id)
);

CREATE TABLE IF NOT EXISTS refund_claims (
    fund_id INTEGER NOT NULL,
    contributor TEXT NOT NULL,
    amount INTEGER NOT NULL,
    claimed INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (fund_id, contributor),
    FOREIGN KEY (fund_id) REFERENCES funds(id)
);

CREATE TABLE IF NOT EXISTS accounts (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS balances (
    account TEXT PRIMARY KEY,
    balance INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_milestones_fund_id ON milestones(fund_id);
CREATE INDEX IF NOT EXISTS idx_donors_fund_id ON donors(fund_id);
CREATE INDEX IF NOT EXISTS idx_contributions_fund_id ON contributions(fund_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
