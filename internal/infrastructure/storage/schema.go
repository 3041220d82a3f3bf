package storage

const journalSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	url         TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	finished_at TEXT,
	reason      TEXT,
	pages       INTEGER NOT NULL DEFAULT 0,
	records     INTEGER NOT NULL DEFAULT 0,
	output_path TEXT
);

CREATE TABLE IF NOT EXISTS pages (
	run_id       TEXT NOT NULL REFERENCES runs(id),
	page_number  INTEGER NOT NULL,
	records      INTEGER NOT NULL,
	fingerprint  TEXT NOT NULL,
	committed_at TEXT NOT NULL,
	PRIMARY KEY (run_id, page_number)
);
`
