// Package store is the GORM-backed repository shared by the server and the
// edge stations. The same type serves both deployments: a station wraps its
// local embedded database, the server wraps the authoritative store. Which
// handle a component reads through is decided by whoever constructs it.
package store

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/dapurpintar/dpmbggo/internal/database"
	"github.com/dapurpintar/dpmbggo/internal/models"
	"github.com/dapurpintar/dpmbggo/internal/scan"
)

// Store wraps a database handle with the pipeline's persistence operations.
type Store struct {
	db *database.DB
}

// New creates a Store over db.
func New(db *database.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the pipeline schema.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(
		&models.Item{},
		&models.Tray{},
		&models.Delivery{},
		&models.ScanRecord{},
		&models.ScanError{},
		&models.ScanQueueRow{},
		&models.PrintJob{},
	)
}

// ---------- Validator reads (scan.EntityState) ----------

// ItemLabel returns the current pipeline label of an ingredient.
func (s *Store) ItemLabel(code string) (string, bool, error) {
	var item models.Item
	err := s.db.Select("label").Where("id = ?", code).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return item.Label, true, nil
}

// TrayState returns the current pipeline state of a tray.
func (s *Store) TrayState(code string) (scan.TrayState, bool, error) {
	var tray models.Tray
	err := s.db.Where("tray_id = ?", code).First(&tray).Error
	if err == gorm.ErrRecordNotFound {
		return scan.TrayState{}, false, nil
	}
	if err != nil {
		return scan.TrayState{}, false, err
	}
	return scan.TrayState{
		Label:       tray.Label,
		PackedAt:    tray.PackedAt,
		DeliveredAt: tray.DeliveredAt,
	}, true, nil
}

// ---------- Accepted scans ----------

// AcceptedScan is a validated scan about to be committed.
type AcceptedScan struct {
	Code        string
	Stage       string
	TargetLabel string
	At          time.Time
	Payload     datatypes.JSON // receiving item fields, nil otherwise
}

func (a AcceptedScan) queueRow() models.ScanQueueRow {
	return models.ScanQueueRow{
		Code:        a.Code,
		Stage:       a.Stage,
		TargetLabel: a.TargetLabel,
		ScannedAt:   models.LocalISO(a.At),
		ScanDate:    models.LocalDate(a.At),
		Payload:     a.Payload,
	}
}

// CommitLocal durably records an accepted scan on an edge station: the local
// entity mirror advances and a queue row is appended in one transaction. The
// row belongs to this process until the syncer confirms the remote commit.
func (s *Store) CommitLocal(a AcceptedScan) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := applyLabel(tx, a.queueRow()); err != nil {
			return err
		}
		row := a.queueRow()
		return tx.Create(&row).Error
	})
}

// CommitAuthoritative records an accepted scan directly against the
// authoritative store: entity label plus an append-once scan record.
func (s *Store) CommitAuthoritative(a AcceptedScan) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		row := a.queueRow()
		if err := applyLabel(tx, row); err != nil {
			return err
		}
		return appendScanRecord(tx, row)
	})
}

// RecordError appends a rejected scan to the audit log.
func (s *Store) RecordError(code, stage, reason string, at time.Time) error {
	return s.db.Create(&models.ScanError{
		Code:      code,
		Stage:     stage,
		ScannedAt: models.LocalISO(at),
		Reason:    reason,
	}).Error
}

// StationSink adapts the store to the terminal's durable write-side on an
// edge station: commits go through the local queue.
type StationSink struct {
	store *Store
}

// Sink returns the scan terminal write-side over this store.
func (s *Store) Sink() *StationSink {
	return &StationSink{store: s}
}

// CommitScan durably records an accepted scan in the local queue.
func (ss *StationSink) CommitScan(code string, stage scan.Stage, at time.Time) error {
	return ss.store.CommitLocal(AcceptedScan{
		Code:        code,
		Stage:       stage.String(),
		TargetLabel: stage.TargetLabel(),
		At:          at,
	})
}

// RecordError appends a rejected scan to the local audit log.
func (ss *StationSink) RecordError(code string, stage scan.Stage, reason string, at time.Time) error {
	return ss.store.RecordError(code, stage.String(), reason, at)
}

// ---------- Syncer: local queue side ----------

// UnsyncedScans returns all queue rows awaiting replication, oldest first.
func (s *Store) UnsyncedScans() ([]models.ScanQueueRow, error) {
	var rows []models.ScanQueueRow
	err := s.db.Where("synced = ?", false).Order("id asc").Find(&rows).Error
	return rows, err
}

// DeleteScans removes exactly the given queue rows. Scoping the delete to
// the ids read at the start of a cycle keeps rows inserted mid-cycle safe.
func (s *Store) DeleteScans(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.Where("id IN ?", ids).Delete(&models.ScanQueueRow{}).Error
}

// UnsyncedErrors returns all scan errors awaiting replication.
func (s *Store) UnsyncedErrors() ([]models.ScanError, error) {
	var rows []models.ScanError
	err := s.db.Where("synced = ?", false).Order("id asc").Find(&rows).Error
	return rows, err
}

// DeleteErrors removes exactly the given error rows.
func (s *Store) DeleteErrors(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.Where("id IN ?", ids).Delete(&models.ScanError{}).Error
}

// ---------- Syncer: remote side ----------

// ApplyScans replays queue rows against the authoritative store in one
// transaction. Every mutation is an idempotent upsert keyed by (code, stage):
// replaying the same row is a no-op beyond a timestamp overwrite, so
// at-least-once delivery converges.
func (s *Store) ApplyScans(rows []models.ScanQueueRow) error {
	if len(rows) == 0 {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			if err := applyLabel(tx, row); err != nil {
				return err
			}
			if err := appendScanRecord(tx, row); err != nil {
				return err
			}
		}
		return nil
	})
}

// AppendErrors pushes scan errors into the remote audit log.
func (s *Store) AppendErrors(errs []models.ScanError) error {
	if len(errs) == 0 {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, e := range errs {
			remote := models.ScanError{
				Code:      e.Code,
				Stage:     e.Stage,
				ScannedAt: e.ScannedAt,
				Reason:    e.Reason,
				Synced:    true,
			}
			if err := tx.Create(&remote).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// applyLabel advances the entity named by row to its target label.
// Update-if-exists-else-insert for every stage.
func applyLabel(tx *gorm.DB, row models.ScanQueueRow) error {
	at := parseScanTime(row.ScannedAt)

	switch row.TargetLabel {
	case models.LabelReceived:
		item := itemFromPayload(row)
		// Receiving replays must not clobber a later processing label.
		return tx.Where("id = ?", item.Code).
			Attrs(&item).
			FirstOrCreate(&models.Item{}).Error

	case models.LabelProcessed:
		res := tx.Model(&models.Item{}).Where("id = ?", row.Code).
			Updates(map[string]interface{}{
				"label":        models.LabelProcessed,
				"processed_at": at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// The receiving row never made it here; keep the scan anyway.
			stub := models.Item{
				Code:        row.Code,
				Name:        "Unknown Ingredient (" + row.Code + ")",
				Label:       models.LabelProcessed,
				ProcessedAt: &at,
			}
			return tx.Create(&stub).Error
		}
		return nil

	case models.LabelPacked:
		res := tx.Model(&models.Tray{}).Where("tray_id = ?", row.Code).
			Updates(map[string]interface{}{
				"label":     models.LabelPacked,
				"packed_at": at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			tray := models.Tray{TrayCode: row.Code, Label: models.LabelPacked, PackedAt: &at}
			return tx.Create(&tray).Error
		}
		return nil

	case models.LabelDelivered:
		res := tx.Model(&models.Tray{}).Where("tray_id = ?", row.Code).
			Updates(map[string]interface{}{
				"label":        models.LabelDelivered,
				"delivered_at": at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			tray := models.Tray{TrayCode: row.Code, Label: models.LabelDelivered, DeliveredAt: &at}
			return tx.Create(&tray).Error
		}
		return nil
	}

	return fmt.Errorf("unknown target label %q", row.TargetLabel)
}

// appendScanRecord appends to the authoritative scan log, at most once per
// (code, label, calendar day).
func appendScanRecord(tx *gorm.DB, row models.ScanQueueRow) error {
	record := models.ScanRecord{
		Code:      row.Code,
		Stage:     row.Stage,
		Label:     row.TargetLabel,
		ScanDate:  row.ScanDate,
		ScannedAt: row.ScannedAt,
		Extra:     row.Payload,
	}
	return tx.Where("code = ? AND label = ? AND scan_date = ?", row.Code, row.TargetLabel, row.ScanDate).
		Attrs(&record).
		FirstOrCreate(&models.ScanRecord{}).Error
}

func itemFromPayload(row models.ScanQueueRow) models.Item {
	item := models.Item{
		Code:  row.Code,
		Name:  "Unknown Ingredient (" + row.Code + ")",
		Unit:  "g",
		Label: models.LabelReceived,
	}
	if len(row.Payload) > 0 {
		var payload struct {
			Name        string  `json:"name"`
			WeightGrams int     `json:"weight_grams"`
			Unit        string  `json:"unit"`
			Reason      *string `json:"reason"`
		}
		if err := json.Unmarshal(row.Payload, &payload); err == nil {
			if payload.Name != "" {
				item.Name = payload.Name
			}
			if payload.Unit != "" {
				item.Unit = payload.Unit
			}
			item.WeightGrams = payload.WeightGrams
			item.Reason = payload.Reason
		}
	}
	return item
}

func parseScanTime(iso string) time.Time {
	if t, err := time.ParseInLocation(models.TimeLayout, iso, time.Local); err == nil {
		return t
	}
	return time.Now()
}

// ---------- Receiving & registration ----------

// CreateItem inserts a freshly received ingredient (label=received).
func (s *Store) CreateItem(item *models.Item) error {
	if item.Label == "" {
		item.Label = models.LabelReceived
	}
	if item.Unit == "" {
		item.Unit = "g"
	}
	return s.db.Create(item).Error
}

// RegisterTray registers a tray code; re-registration is a no-op.
func (s *Store) RegisterTray(code string) (created bool, err error) {
	tray := models.Tray{TrayCode: code}
	res := s.db.Where("tray_id = ?", code).FirstOrCreate(&tray)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ---------- Delivery allocation ----------

// AssignedCount counts trays already allocated to a school.
func (s *Store) AssignedCount(school string) (int, error) {
	var n int64
	err := s.db.Model(&models.Delivery{}).Where("school_name = ?", school).Count(&n).Error
	return int(n), err
}

// AddDeliveries appends count delivery rows for trayCode at school.
func (s *Store) AddDeliveries(trayCode, school string, count int) error {
	rows := make([]models.Delivery, count)
	for i := range rows {
		rows[i] = models.Delivery{TrayCode: trayCode, SchoolName: school}
	}
	return s.db.Create(&rows).Error
}

// ---------- Print queue ----------

// EnqueuePrint inserts one pending print job and returns its id.
func (s *Store) EnqueuePrint(tspl string) (uint, error) {
	job := models.PrintJob{TSPL: tspl}
	if err := s.db.Create(&job).Error; err != nil {
		return 0, err
	}
	return job.ID, nil
}

// NextPrintJob returns the oldest pending job, or nil when the queue is idle.
func (s *Store) NextPrintJob() (*models.PrintJob, error) {
	var job models.PrintJob
	err := s.db.Where("printed = ?", 0).Order("id asc").First(&job).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// MarkPrinted flips a job to printed with a server-side timestamp. Marking
// an already-printed job again is harmless; the protocol is at-least-once.
func (s *Store) MarkPrinted(id uint) error {
	now := time.Now()
	return s.db.Model(&models.PrintJob{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"printed":    1,
			"printed_at": now,
		}).Error
}
