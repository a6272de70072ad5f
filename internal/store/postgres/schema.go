package postgres

// Schema is the bootstrap DDL for a fresh directory database. Migrations
// are out of scope (see SPEC_FULL.md Non-goals); this is a single
// idempotent CREATE-IF-NOT-EXISTS script, applied by cmd/ldapctl's
// "bootstrap" subcommand, not a versioned migration chain.
const Schema = `
CREATE TABLE IF NOT EXISTS directories (
	id            BIGSERIAL PRIMARY KEY,
	parent_id     BIGINT REFERENCES directories(id),
	object_class  TEXT NOT NULL,
	name          TEXT NOT NULL,
	when_created  TIMESTAMPTZ NOT NULL DEFAULT now(),
	when_changed  TIMESTAMPTZ NOT NULL DEFAULT now(),
	depth         INT NOT NULL DEFAULT 0,
	object_sid    TEXT NOT NULL DEFAULT '',
	object_guid   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS paths (
	directory_id BIGINT PRIMARY KEY REFERENCES directories(id) ON DELETE CASCADE,
	components   TEXT[] NOT NULL
);
CREATE INDEX IF NOT EXISTS paths_components_idx ON paths USING gin (components);

CREATE TABLE IF NOT EXISTS attributes (
	id            BIGSERIAL PRIMARY KEY,
	directory_id  BIGINT NOT NULL REFERENCES directories(id) ON DELETE CASCADE,
	name          TEXT NOT NULL,
	value         TEXT NOT NULL DEFAULT '',
	bvalue        BYTEA
);
CREATE INDEX IF NOT EXISTS attributes_directory_name_idx ON attributes (directory_id, lower(name));

CREATE TABLE IF NOT EXISTS users (
	directory_id        BIGINT PRIMARY KEY REFERENCES directories(id) ON DELETE CASCADE,
	sam_account_name    TEXT NOT NULL DEFAULT '',
	user_principal_name TEXT NOT NULL DEFAULT '',
	display_name        TEXT NOT NULL DEFAULT '',
	mail                TEXT NOT NULL DEFAULT '',
	password_hash       TEXT NOT NULL DEFAULT '',
	password_history    TEXT[] NOT NULL DEFAULT '{}',
	last_logon          TIMESTAMPTZ,
	account_expires     TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS users_upn_idx ON users (lower(user_principal_name));
CREATE UNIQUE INDEX IF NOT EXISTS users_sam_idx ON users (lower(sam_account_name));

CREATE TABLE IF NOT EXISTS groups (
	directory_id BIGINT PRIMARY KEY REFERENCES directories(id) ON DELETE CASCADE
);

-- Computers specialise a Directory entry the same way Users and Groups
-- do; no Add path populates this table yet (see DESIGN.md), but the
-- column stays in the bootstrap DDL so a future Add handler for computer
-- accounts has somewhere to land without another migration.
CREATE TABLE IF NOT EXISTS computers (
	directory_id   BIGINT PRIMARY KEY REFERENCES directories(id) ON DELETE CASCADE,
	sam_account_name TEXT NOT NULL DEFAULT '',
	dns_host_name    TEXT NOT NULL DEFAULT ''
);

-- group_membership holds only group->group nesting edges (child group
-- nested inside parent group). user_membership holds user->group edges.
-- Keeping them apart (rather than one polymorphic edge table keyed by
-- Directory id for both sides) matches the Users/Groups table split and
-- lets IsTransitiveMember start its recursive walk from a typed table.
CREATE TABLE IF NOT EXISTS group_membership (
	child_id  BIGINT NOT NULL REFERENCES directories(id) ON DELETE CASCADE,
	parent_id BIGINT NOT NULL REFERENCES directories(id) ON DELETE CASCADE,
	PRIMARY KEY (child_id, parent_id)
);

CREATE TABLE IF NOT EXISTS user_membership (
	user_id   BIGINT NOT NULL REFERENCES directories(id) ON DELETE CASCADE,
	group_id  BIGINT NOT NULL REFERENCES directories(id) ON DELETE CASCADE,
	PRIMARY KEY (user_id, group_id)
);

CREATE TABLE IF NOT EXISTS catalogue_settings (
	name  TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS network_policies (
	id            BIGSERIAL PRIMARY KEY,
	name          TEXT NOT NULL,
	cidr          TEXT NOT NULL,
	enabled       BOOLEAN NOT NULL DEFAULT true,
	priority      INT NOT NULL,
	groups        TEXT[] NOT NULL DEFAULT '{}',
	mfa_required  BOOLEAN NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS password_policies (
	id                  BOOLEAN PRIMARY KEY DEFAULT true CHECK (id),
	history_length      INT NOT NULL DEFAULT 0,
	max_age_days        INT NOT NULL DEFAULT 0,
	min_age_days        INT NOT NULL DEFAULT 0,
	min_length          INT NOT NULL DEFAULT 0,
	complexity_required BOOLEAN NOT NULL DEFAULT false
);
`
