package sqlite

// Schema DDL for the history tables.
const (
	createBuilds = `CREATE TABLE builds (
    build_id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    output TEXT NOT NULL,
    page_count INTEGER NOT NULL,
    doc_count INTEGER NOT NULL,
    error TEXT,
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL
);`

	createBuildPages = `CREATE TABLE build_pages (
    build_id TEXT NOT NULL,
    ordinal INTEGER NOT NULL,
    title TEXT NOT NULL,
    address TEXT NOT NULL,
    types TEXT NOT NULL,
    PRIMARY KEY (build_id, ordinal),
    FOREIGN KEY (build_id) REFERENCES builds(build_id) ON DELETE CASCADE
);`
)

// Index DDL for common queries.
const (
	idxBuildsStarted  = `CREATE INDEX idx_builds_started ON builds(started_at);`
	idxBuildPagesAddr = `CREATE INDEX idx_build_pages_address ON build_pages(address);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createBuilds,
	createBuildPages,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxBuildsStarted,
	idxBuildPagesAddr,
}
