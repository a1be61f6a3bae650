package journal

const Schema = `
CREATE TABLE IF NOT EXISTS messages (
	millis INTEGER PRIMARY KEY,
	time DATETIME NOT NULL,
	type TEXT NOT NULL,
	message TEXT NOT NULL,
	error_type TEXT NOT NULL,
	description TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS equity (
	time DATETIME NOT NULL,
	balance REAL NOT NULL,
	equity REAL NOT NULL,
	free_margin REAL NOT NULL,
	open_orders INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS commands (
	id TEXT PRIMARY KEY,
	time DATETIME NOT NULL,
	name TEXT NOT NULL,
	payload TEXT NOT NULL,
	slot INTEGER NOT NULL,
	attempts INTEGER NOT NULL,
	elapsed_ms REAL NOT NULL,
	result TEXT NOT NULL,
	error TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_time ON messages(time);
CREATE INDEX IF NOT EXISTS idx_equity_time ON equity(time);
CREATE INDEX IF NOT EXISTS idx_commands_time ON commands(time);
`
