package journal

// Schema creates the journal tables. Idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS orders (
	order_id   TEXT PRIMARY KEY,
	instrument TEXT NOT NULL,
	side       TEXT NOT NULL,
	quantity   INTEGER NOT NULL,
	price      REAL NOT NULL,
	created    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS fills (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	instrument TEXT NOT NULL,
	quantity   INTEGER NOT NULL,
	price      REAL NOT NULL,
	filled_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS equity (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	time     TIMESTAMP NOT NULL,
	balance  REAL NOT NULL,
	equity   REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS risk_events (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	time      TIMESTAMP NOT NULL,
	reason    TEXT NOT NULL,
	equity    REAL NOT NULL,
	threshold REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	time    TIMESTAMP NOT NULL,
	event   TEXT NOT NULL,
	balance REAL NOT NULL
);
`
