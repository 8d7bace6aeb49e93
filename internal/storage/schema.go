package storage

// "user" is quoted everywhere because it is a reserved word in PostgreSQL.

const SchemaSQLite = `
CREATE TABLE IF NOT EXISTS "user" (
	user_id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	pw_hash TEXT NOT NULL,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	email TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tweet (
	tweet_id INTEGER PRIMARY KEY AUTOINCREMENT,
	message TEXT NOT NULL,
	author_id INTEGER NOT NULL,
	FOREIGN KEY(author_id) REFERENCES "user" (user_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_tweet_author_id ON tweet (author_id);
`

const SchemaPostgres = `
CREATE TABLE IF NOT EXISTS "user" (
	user_id BIGSERIAL PRIMARY KEY,
	username VARCHAR NOT NULL UNIQUE,
	pw_hash VARCHAR NOT NULL,
	first_name VARCHAR NOT NULL,
	last_name VARCHAR NOT NULL,
	email VARCHAR NOT NULL
);

CREATE TABLE IF NOT EXISTS tweet (
	tweet_id BIGSERIAL PRIMARY KEY,
	message TEXT NOT NULL,
	author_id BIGINT NOT NULL REFERENCES "user" (user_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_tweet_author_id ON tweet (author_id);
`
