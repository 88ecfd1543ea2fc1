package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"strconv"
	"time"

	_ "github.com/lib/pq"
)

// EnvDatabaseURL is the database audit messages are persisted to. It may be
// the scanstore database itself; the messages table is created by the
// scanstore migrations.
const EnvDatabaseURL = "AUDIT_DATABASE_URL"

// saveTimeout bounds one insert so a slow audit database can't stall
// ingestion.
const saveTimeout = 5 * time.Second

const insertMessage = `
	INSERT INTO messages (facility, severity, timestamp, hostname, appname, procid, msgid, sdata, message)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// Store persists audit events to the messages table.
type Store struct {
	db       *sql.DB
	hostname string
	procid   string
	now      func() time.Time
}

// NewStore opens the audit database named by AUDIT_DATABASE_URL. It returns
// nil, nil when the variable is unset.
func NewStore() (*Store, error) {
	dbURL := os.Getenv(EnvDatabaseURL)
	if dbURL == "" {
		return nil, nil
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, err
	}
	return NewStoreWithDB(db), nil
}

// NewStoreWithDB wraps an open connection.
func NewStoreWithDB(db *sql.DB) *Store {
	hostname, _ := os.Hostname()
	return &Store{
		db:       db,
		hostname: hostname,
		procid:   strconv.Itoa(os.Getpid()),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save inserts one event. The structured data is stored as jsonb keyed by
// SD-ID, so scan, pipeline and client parameters can be queried directly.
func (s *Store) Save(event Event) error {
	if s.db == nil {
		return nil
	}

	sdata, err := json.Marshal(event.StructuredData())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	_, err = s.db.ExecContext(ctx, insertMessage,
		event.Facility(),
		int(event.Severity()),
		s.now(),
		s.hostname,
		AppName,
		s.procid,
		event.MessageID(),
		sdata,
		event.Message(),
	)
	return err
}
