package store

// SchemaSQL is the complete schema for fresh installs and the single
// source of truth for column names. Tests build their databases from it
// through Open, so any drift between repository code and schema fails
// immediately with "no such column".
const SchemaSQL = `
CREATE TABLE IF NOT EXISTS taxpayers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	cuit INTEGER NOT NULL UNIQUE,
	sandbox INTEGER NOT NULL DEFAULT 1,
	key_pem BLOB,
	certificate_pem BLOB,
	certificate_expires DATETIME,
	active_since DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS points_of_sales (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	number INTEGER NOT NULL,
	taxpayer_id INTEGER NOT NULL,
	issuing_name TEXT,
	issuing_address TEXT,
	vat_condition TEXT,
	gross_income TEXT,
	sales_terms TEXT,
	FOREIGN KEY (taxpayer_id) REFERENCES taxpayers(id) ON DELETE CASCADE,
	UNIQUE(taxpayer_id, number)
);

-- Tickets are immutable once inserted; expired rows are swept by
-- DeleteExpiredTickets, never updated.
CREATE TABLE IF NOT EXISTS auth_tickets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	taxpayer_id INTEGER NOT NULL,
	service TEXT NOT NULL,
	unique_id INTEGER NOT NULL,
	generated DATETIME NOT NULL,
	expires DATETIME NOT NULL,
	token TEXT NOT NULL,
	signature TEXT NOT NULL,
	FOREIGN KEY (taxpayer_id) REFERENCES taxpayers(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_auth_tickets_lookup
	ON auth_tickets(taxpayer_id, service, expires);

-- Append-only lookup dimensions populated from FEParamGet*.
CREATE TABLE IF NOT EXISTS afip_types (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL CHECK(kind IN ('receipt_type', 'concept_type', 'document_type', 'vat_type', 'tax_type', 'currency_type')),
	code TEXT NOT NULL,
	description TEXT NOT NULL,
	valid_from DATETIME,
	valid_to DATETIME,
	UNIQUE(kind, code)
);

-- SQLite treats NULLs in a UNIQUE constraint as distinct, so any number
-- of unnumbered receipts may coexist per (point_of_sales, type).
CREATE TABLE IF NOT EXISTS receipts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	point_of_sales_id INTEGER NOT NULL,
	receipt_type_code INTEGER NOT NULL,
	concept INTEGER NOT NULL DEFAULT 1,
	document_type_code INTEGER NOT NULL,
	document_number INTEGER NOT NULL,
	receipt_number INTEGER,
	issued_date DATETIME NOT NULL,
	total_amount TEXT NOT NULL,
	net_untaxed TEXT NOT NULL,
	net_taxed TEXT NOT NULL,
	exempt_amount TEXT NOT NULL,
	currency_code TEXT NOT NULL DEFAULT 'PES',
	currency_quote TEXT NOT NULL DEFAULT '1',
	service_start DATETIME,
	service_end DATETIME,
	expiration_date DATETIME,
	FOREIGN KEY (point_of_sales_id) REFERENCES points_of_sales(id) ON DELETE CASCADE,
	UNIQUE(point_of_sales_id, receipt_type_code, receipt_number)
);

CREATE TABLE IF NOT EXISTS related_receipts (
	receipt_id INTEGER NOT NULL,
	related_id INTEGER NOT NULL,
	PRIMARY KEY (receipt_id, related_id),
	FOREIGN KEY (receipt_id) REFERENCES receipts(id) ON DELETE CASCADE,
	FOREIGN KEY (related_id) REFERENCES receipts(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS vats (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	receipt_id INTEGER NOT NULL,
	type_code INTEGER NOT NULL,
	base_amount TEXT NOT NULL,
	amount TEXT NOT NULL,
	FOREIGN KEY (receipt_id) REFERENCES receipts(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS taxes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	receipt_id INTEGER NOT NULL,
	type_code INTEGER NOT NULL,
	description TEXT,
	base_amount TEXT NOT NULL,
	aliquot TEXT NOT NULL DEFAULT '0',
	amount TEXT NOT NULL,
	FOREIGN KEY (receipt_id) REFERENCES receipts(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS receipt_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	receipt_id INTEGER NOT NULL,
	description TEXT NOT NULL,
	quantity TEXT NOT NULL,
	unit_price TEXT NOT NULL,
	discount TEXT NOT NULL DEFAULT '0',
	vat_type_code INTEGER,
	FOREIGN KEY (receipt_id) REFERENCES receipts(id) ON DELETE CASCADE
);

-- One row per submission round-trip.
CREATE TABLE IF NOT EXISTS validations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	batch_id TEXT NOT NULL,
	processed_date DATETIME NOT NULL,
	result TEXT NOT NULL CHECK(result IN ('A', 'R', 'P'))
);

-- Exists if and only if AFIP approved the receipt.
CREATE TABLE IF NOT EXISTS receipt_validations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	validation_id INTEGER NOT NULL,
	receipt_id INTEGER NOT NULL UNIQUE,
	result TEXT NOT NULL CHECK(result IN ('A')),
	cae TEXT NOT NULL,
	cae_expiration DATETIME NOT NULL,
	FOREIGN KEY (validation_id) REFERENCES validations(id) ON DELETE CASCADE,
	FOREIGN KEY (receipt_id) REFERENCES receipts(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS observations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	code INTEGER NOT NULL,
	message TEXT NOT NULL,
	UNIQUE(code, message)
);

CREATE TABLE IF NOT EXISTS receipt_validation_observations (
	receipt_validation_id INTEGER NOT NULL,
	observation_id INTEGER NOT NULL,
	PRIMARY KEY (receipt_validation_id, observation_id),
	FOREIGN KEY (receipt_validation_id) REFERENCES receipt_validations(id) ON DELETE CASCADE,
	FOREIGN KEY (observation_id) REFERENCES observations(id) ON DELETE CASCADE
);
`
