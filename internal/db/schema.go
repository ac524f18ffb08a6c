package db

// baseSchema creates the five collections. Item documents live in the data
// column as JSON; the extracted columns exist only to index common queries
// and always mirror the document.
//
// attachments.item_id deliberately has no foreign key: the owning item row
// moves from inventory to archive when it sells, and its attachments stay
// put.
const baseSchema = `
CREATE TABLE IF NOT EXISTS inventory (
    id         TEXT PRIMARY KEY,
    data       TEXT NOT NULL,
    status     TEXT NOT NULL DEFAULT 'sourced',
    brand      TEXT,
    category   TEXT,
    store_id   TEXT,
    unsynced   INTEGER NOT NULL DEFAULT 1,
    updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_inventory_status   ON inventory(status);
CREATE INDEX IF NOT EXISTS idx_inventory_unsynced ON inventory(unsynced);
CREATE INDEX IF NOT EXISTS idx_inventory_store    ON inventory(store_id);

CREATE TABLE IF NOT EXISTS archive (
    id         TEXT PRIMARY KEY,
    data       TEXT NOT NULL,
    status     TEXT NOT NULL DEFAULT 'sold',
    brand      TEXT,
    category   TEXT,
    store_id   TEXT,
    unsynced   INTEGER NOT NULL DEFAULT 1,
    updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_archive_unsynced ON archive(unsynced);

CREATE TABLE IF NOT EXISTS attachments (
    id            TEXT PRIMARY KEY,
    item_id       TEXT NOT NULL,
    filename      TEXT NOT NULL,
    mime_type     TEXT NOT NULL,
    kind          TEXT NOT NULL CHECK (kind IN ('photo', 'label', 'receipt', 'flaw')),
    data          BLOB NOT NULL,
    synced        INTEGER NOT NULL DEFAULT 0,
    drive_file_id TEXT,
    created_at    DATETIME NOT NULL,
    UNIQUE (item_id, filename)
);

CREATE INDEX IF NOT EXISTS idx_attachments_item   ON attachments(item_id);
CREATE INDEX IF NOT EXISTS idx_attachments_synced ON attachments(synced);

CREATE TABLE IF NOT EXISTS stores (
    id         TEXT PRIMARY KEY,
    data       TEXT NOT NULL,
    name       TEXT NOT NULL,
    unsynced   INTEGER NOT NULL DEFAULT 1,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`
