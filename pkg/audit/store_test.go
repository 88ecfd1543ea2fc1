package audit

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

// pipelineSData matches the jsonb structured data of a pipeline event.
type pipelineSData struct {
	pipeline string
}

func (m pipelineSData) Match(v driver.Value) bool {
	raw, ok := v.([]byte)
	if !ok {
		return false
	}
	var sdata map[string]map[string]string
	if err := json.Unmarshal(raw, &sdata); err != nil {
		return false
	}
	return sdata[SDIDPipeline]["pipeline"] == m.pipeline
}

func TestStoreSave(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)
	stored := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return stored }
	store.hostname = "ingest-1"
	store.procid = "4242"

	event := ScanEvent{
		ProjectID:  1,
		PipelineID: 2,
		ScanID:     3,
		ScanType:   "sast",
		Status:     "succeeded",
		Findings:   5,
		Success:    true,
	}

	mock.ExpectExec(`INSERT INTO messages`).
		WithArgs(
			FacilityAudit,
			int(SeverityInfo),
			stored,
			"ingest-1",
			"scanstore",
			"4242",
			"scan",
			pipelineSData{pipeline: "2"},
			"stored sast scan 3 of pipeline 2 with 5 findings",
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = store.Save(event)
	if err != nil {
		t.Errorf("Save() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreSaveRevocationFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)

	event := RevocationEvent{
		PipelineID:   2,
		Tokens:       1,
		ErrorMessage: "timeout",
	}

	mock.ExpectExec(`INSERT INTO messages`).
		WithArgs(
			FacilityAuthPriv,
			int(SeverityError),
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			"scanstore",
			sqlmock.AnyArg(),
			"revocation",
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = store.Save(event)
	if err != nil {
		t.Errorf("Save() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreSaveError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)

	mock.ExpectExec(`INSERT INTO messages`).WillReturnError(errors.New("relation does not exist"))

	if err := store.Save(PurgeEvent{Before: time.Now(), Success: true}); err == nil {
		t.Error("Save() expected error")
	}
}

func TestStoreNilDB(t *testing.T) {
	store := &Store{db: nil}

	// Should not error when db is nil
	err := store.Save(ApprovalEvent{RuleName: "r"})
	if err != nil {
		t.Errorf("Save() with nil db should not error, got: %v", err)
	}
}

func TestStoreClose(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	store := NewStoreWithDB(db)

	mock.ExpectClose()

	err = store.Close()
	if err != nil {
		t.Errorf("Close() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreCloseNilDB(t *testing.T) {
	store := &Store{db: nil}

	err := store.Close()
	if err != nil {
		t.Errorf("Close() with nil db should not error, got: %v", err)
	}
}

func TestNewStoreWithoutURL(t *testing.T) {
	t.Setenv(EnvDatabaseURL, "")

	store, err := NewStore()
	if err != nil || store != nil {
		t.Errorf("NewStore() = %v, %v; want nil, nil", store, err)
	}
}
