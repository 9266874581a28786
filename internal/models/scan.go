package models

import (
	"time"

	"gorm.io/datatypes"
)

// ScanRecord is one successful scan in the authoritative log. Append-only.
// The composite unique index enforces at most one successful record per
// (code, label, calendar day): a repeated scan on the same day cannot be
// double-counted, while the same tray may recur on a later campaign day.
type ScanRecord struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Code      string         `gorm:"uniqueIndex:idx_scan_code_label_day;not null" json:"code"`
	Stage     string         `gorm:"not null" json:"stage"`
	Label     string         `gorm:"uniqueIndex:idx_scan_code_label_day;not null" json:"label"`
	ScanDate  string         `gorm:"uniqueIndex:idx_scan_code_label_day;type:varchar(10);not null" json:"scan_date"`
	ScannedAt string         `gorm:"not null" json:"scanned_at"` // local wall-clock, ISO
	Reason    *string        `gorm:"type:text" json:"reason,omitempty"`
	Extra     datatypes.JSON `json:"extra,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// TableName specifies the table name for ScanRecord model
func (ScanRecord) TableName() string {
	return "scan_records"
}

// ScanError is a rejected scan. Write-only audit trail; never drives state.
// On edge stations Synced gates the push to the remote error log.
type ScanError struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Code      string    `gorm:"index" json:"code"` // possibly malformed
	Stage     string    `gorm:"not null" json:"stage"`
	ScannedAt string    `gorm:"not null" json:"scanned_at"`
	Reason    string    `gorm:"type:text;not null" json:"reason"`
	Synced    bool      `gorm:"default:false" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for ScanError model
func (ScanError) TableName() string {
	return "scan_errors"
}

// ScanQueueRow is a locally committed scan awaiting replication. The edge
// process owns a row until the syncer confirms the remote mutation, then
// deletes it. Payload carries the receiving item fields so an item created
// offline reaches the remote store intact.
type ScanQueueRow struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Code        string         `gorm:"not null" json:"code"`
	Stage       string         `gorm:"not null" json:"stage"`
	TargetLabel string         `gorm:"not null" json:"target_label"`
	ScannedAt   string         `gorm:"not null" json:"scanned_at"`
	ScanDate    string         `gorm:"type:varchar(10);not null" json:"scan_date"`
	Payload     datatypes.JSON `json:"payload,omitempty"`
	Synced      bool           `gorm:"default:false" json:"-"`
	CreatedAt   time.Time      `json:"created_at"`
}

// TableName specifies the table name for ScanQueueRow model
func (ScanQueueRow) TableName() string {
	return "local_scan_queue"
}
