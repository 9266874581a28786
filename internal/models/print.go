package models

import "time"

// PrintJob is one pending label in the FIFO print queue. Producers insert
// with Printed=0; the poller marks Printed=1 only after the physical write
// succeeded. Duplicate prints are possible (ack lost), skipped prints are not.
type PrintJob struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	TSPL      string     `gorm:"column:tspl;type:text;not null" json:"tspl"`
	CreatedAt time.Time  `json:"created_at"`
	Printed   int        `gorm:"default:0;index" json:"printed"`
	PrintedAt *time.Time `json:"printed_at,omitempty"`
}

// TableName specifies the table name for PrintJob model
func (PrintJob) TableName() string {
	return "print_jobs"
}
