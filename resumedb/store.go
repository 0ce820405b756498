package resumedb

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// Record is the persisted snapshot of one torrent's resume state. Field
// names mirror the torrent_resume table's columns via `db` struct tags so
// sqlx can scan/bind it directly.
type Record struct {
	InfoHash           string    `db:"info_hash"`
	Name               string    `db:"name"`
	DownloadDir        string    `db:"download_dir"`
	CurrentDir         string    `db:"current_dir"`
	Priority           int       `db:"priority"`
	QueuePosition      int       `db:"queue_position"`
	Activity           int       `db:"activity"`
	Finished           bool      `db:"finished"`
	CompletionBitfield []byte    `db:"completion_bitfield"`
	HaveBlocksBitfield []byte    `db:"have_blocks_bitfield"`
	UploadedEver       uint64    `db:"uploaded_ever"`
	DownloadedEver     uint64    `db:"downloaded_ever"`
	CorruptEver        uint64    `db:"corrupt_ever"`
	Labels             string    `db:"labels"`
	BandwidthGroup     string    `db:"bandwidth_group"`
	DateAdded          time.Time `db:"date_added"`
	DateDone           *time.Time `db:"date_done"`
	SecondsSeeding     int64     `db:"seconds_seeding"`
	SecondsDownloading int64     `db:"seconds_downloading"`
}

// Store persists and retrieves torrent Records against a resume database.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps an already-migrated resume database.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Save upserts r, keyed by its InfoHash.
func (s *Store) Save(r Record) error {
	// The bitfield columns are NOT NULL; an absent bitfield is stored empty.
	if r.CompletionBitfield == nil {
		r.CompletionBitfield = []byte{}
	}
	if r.HaveBlocksBitfield == nil {
		r.HaveBlocksBitfield = []byte{}
	}
	_, err := s.db.NamedExec(`
		INSERT INTO torrent_resume (
			info_hash, name, download_dir, current_dir, priority,
			queue_position, activity, finished, completion_bitfield,
			have_blocks_bitfield, uploaded_ever, downloaded_ever,
			corrupt_ever, labels, bandwidth_group, date_added, date_done,
			seconds_seeding, seconds_downloading, updated_at
		) VALUES (
			:info_hash, :name, :download_dir, :current_dir, :priority,
			:queue_position, :activity, :finished, :completion_bitfield,
			:have_blocks_bitfield, :uploaded_ever, :downloaded_ever,
			:corrupt_ever, :labels, :bandwidth_group, :date_added, :date_done,
			:seconds_seeding, :seconds_downloading, CURRENT_TIMESTAMP
		)
		ON CONFLICT(info_hash) DO UPDATE SET
			name = excluded.name,
			download_dir = excluded.download_dir,
			current_dir = excluded.current_dir,
			priority = excluded.priority,
			queue_position = excluded.queue_position,
			activity = excluded.activity,
			finished = excluded.finished,
			completion_bitfield = excluded.completion_bitfield,
			have_blocks_bitfield = excluded.have_blocks_bitfield,
			uploaded_ever = excluded.uploaded_ever,
			downloaded_ever = excluded.downloaded_ever,
			corrupt_ever = excluded.corrupt_ever,
			labels = excluded.labels,
			bandwidth_group = excluded.bandwidth_group,
			date_done = excluded.date_done,
			seconds_seeding = excluded.seconds_seeding,
			seconds_downloading = excluded.seconds_downloading,
			updated_at = CURRENT_TIMESTAMP
	`, r)
	return err
}

// Load returns the Record for infoHash, or (Record{}, false, nil) if none
// exists.
func (s *Store) Load(infoHash string) (Record, bool, error) {
	var r Record
	// Unsafe: updated_at has no Record field and is skipped when scanning.
	err := s.db.Unsafe().Get(&r, `SELECT * FROM torrent_resume WHERE info_hash = ?`, infoHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, false, nil
		}
		return Record{}, false, err
	}
	return r, true, nil
}

// LoadAll returns every persisted Record, ordered by queue_position, for
// session startup.
func (s *Store) LoadAll() ([]Record, error) {
	var rs []Record
	err := s.db.Unsafe().Select(&rs, `SELECT * FROM torrent_resume ORDER BY queue_position ASC`)
	return rs, err
}

// Delete removes the Record for infoHash, e.g. when a torrent is removed
// from the session.
func (s *Store) Delete(infoHash string) error {
	_, err := s.db.Exec(`DELETE FROM torrent_resume WHERE info_hash = ?`, infoHash)
	return err
}
