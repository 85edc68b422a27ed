package journal

const Schema = `
CREATE TABLE IF NOT EXISTS cycles (
	cycle_id TEXT PRIMARY KEY,
	time DATETIME NOT NULL,
	rate REAL NOT NULL,
	rate_live INTEGER NOT NULL,
	positions INTEGER NOT NULL,
	failures INTEGER NOT NULL,
	elapsed_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS quotes (
	cycle_id TEXT NOT NULL,
	ticker TEXT NOT NULL,
	time DATETIME NOT NULL,
	spot REAL NOT NULL,
	spot_ok INTEGER NOT NULL,
	vol REAL NOT NULL,
	vol_live INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cycles_time ON cycles(time);
CREATE INDEX IF NOT EXISTS idx_quotes_cycle ON quotes(cycle_id);
`
