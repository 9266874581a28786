package models

import (
	"time"
)

// Pipeline labels. An Item advances received -> processed exactly once.
// A Tray is registered with no label, then advances packed -> delivered;
// a later-day campaign may pack the same tray again.
const (
	LabelReceived  = "received"
	LabelProcessed = "processed"
	LabelPacked    = "packed"
	LabelDelivered = "delivered"
)

// Item is an ingredient batch (BHN-xxxxxxxx). Created by receiving,
// never deleted.
type Item struct {
	Code        string     `gorm:"column:id;primaryKey" json:"id"`
	Name        string     `gorm:"not null" json:"name"`
	WeightGrams int        `gorm:"not null" json:"weight_grams"`
	Unit        string     `gorm:"not null;default:'g'" json:"unit"`
	Label       string     `gorm:"not null;default:'received'" json:"label"`
	Reason      *string    `gorm:"type:text" json:"reason,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Item model
func (Item) TableName() string {
	return "items"
}

// Tray is a reusable food tray (TRY-xxxxxxxx). Must be registered before
// it can be packed. Label is empty until the first packing scan.
type Tray struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	TrayCode    string     `gorm:"column:tray_id;unique;not null" json:"tray_id"`
	Label       string     `json:"label"`
	Reason      *string    `gorm:"type:text" json:"reason,omitempty"`
	PackedAt    *time.Time `json:"packed_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Tray model
func (Tray) TableName() string {
	return "trays"
}

// Delivery is one tray allocated to one school by the delivery scan.
type Delivery struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TrayCode   string    `gorm:"column:tray_id;index;not null" json:"tray_id"`
	SchoolName string    `gorm:"index;not null" json:"school_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for Delivery model
func (Delivery) TableName() string {
	return "deliveries"
}
