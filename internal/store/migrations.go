package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS owners (
	id           INTEGER PRIMARY KEY,
	email        TEXT NOT NULL DEFAULT '',
	company_name TEXT NOT NULL DEFAULT '',
	sync_level   INTEGER NOT NULL DEFAULT 0,
	currency     TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS shops (
	id              INTEGER PRIMARY KEY,
	name            TEXT NOT NULL,
	email           TEXT NOT NULL DEFAULT '',
	customer_email  TEXT NOT NULL DEFAULT '',
	domain          TEXT NOT NULL DEFAULT '',
	platform_domain TEXT NOT NULL DEFAULT '',
	shop_owner      TEXT NOT NULL DEFAULT '',
	currency        TEXT NOT NULL DEFAULT '',
	owner_id        INTEGER NOT NULL DEFAULT 0,
	created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_shops_email ON shops(email);
CREATE INDEX IF NOT EXISTS idx_shops_customer_email ON shops(customer_email);
CREATE INDEX IF NOT EXISTS idx_shops_domain ON shops(domain);
CREATE INDEX IF NOT EXISTS idx_shops_owner_id ON shops(owner_id);
CREATE INDEX IF NOT EXISTS idx_owners_email ON owners(email);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_shops_name ON shops(name);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
