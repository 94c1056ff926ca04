package migrate

// baseSchema creates the tables MeetScribe needs if they don't already
// exist. Column shapes here already match the latest migration's end
// state — migrations only exist to carry incremental changes made after a
// table first shipped.
var baseSchema = []string{
	`CREATE TABLE IF NOT EXISTS meetings (
		id SERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		date TIMESTAMPTZ NOT NULL,
		duration DOUBLE PRECISION,
		platform TEXT,
		url TEXT,
		status TEXT NOT NULL DEFAULT 'processing',
		audio_file TEXT,
		extracted_data JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS transcripts (
		id SERIAL PRIMARY KEY,
		meeting_id INTEGER NOT NULL UNIQUE REFERENCES meetings(id) ON DELETE CASCADE,
		full_text TEXT NOT NULL DEFAULT '',
		formatted TEXT NOT NULL DEFAULT '',
		stats JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS segments (
		id SERIAL PRIMARY KEY,
		meeting_id INTEGER NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
		speaker TEXT NOT NULL,
		text TEXT NOT NULL,
		start_time DOUBLE PRECISION NOT NULL,
		end_time DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ix_segments_meeting_start ON segments(meeting_id, start_time)`,
	`CREATE TABLE IF NOT EXISTS jobs (
		id SERIAL PRIMARY KEY,
		job_id TEXT NOT NULL UNIQUE,
		meeting_id INTEGER NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
		status TEXT NOT NULL DEFAULT 'queued',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		result JSONB,
		error TEXT
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ix_jobs_job_id ON jobs(job_id)`,
	`CREATE INDEX IF NOT EXISTS ix_jobs_status_created ON jobs(status, created_at)`,
	`CREATE TABLE IF NOT EXISTS _schema_version (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		version INTEGER NOT NULL
	)`,
}
