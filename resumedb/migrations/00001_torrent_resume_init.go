package migrations

import (
	"database/sql"

	"github.com/pressly/goose"
)

func init() {
	goose.AddMigration(up00001, down00001)
}

func up00001(tx *sql.Tx) error {
	_, err := tx.Exec(
		`CREATE TABLE IF NOT EXISTS torrent_resume (
		info_hash             text      NOT NULL PRIMARY KEY,
		name                  text      NOT NULL,
		download_dir          text      NOT NULL,
		current_dir           text      NOT NULL,
		priority              integer   NOT NULL,
		queue_position        integer   NOT NULL,
		activity              integer   NOT NULL,
		finished              boolean   NOT NULL,
		completion_bitfield   blob      NOT NULL,
		have_blocks_bitfield  blob      NOT NULL,
		uploaded_ever         integer   NOT NULL,
		downloaded_ever       integer   NOT NULL,
		corrupt_ever          integer   NOT NULL,
		labels                text      NOT NULL,
		bandwidth_group       text      NOT NULL,
		date_added            timestamp NOT NULL,
		date_done             timestamp,
		seconds_seeding       integer   NOT NULL,
		seconds_downloading   integer   NOT NULL,
		updated_at            timestamp DEFAULT CURRENT_TIMESTAMP
	);`)
	return err
}

func down00001(tx *sql.Tx) error {
	_, err := tx.Exec(`DROP TABLE torrent_resume;`)
	return err
}
