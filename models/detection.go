package models

import (
	"time"
)

// Detection records one processed image together with the numbers accepted
// from it. UserID is nil for anonymous API calls and for unattributed batch
// runs.
type Detection struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	UserID    *uint  `gorm:"index"`
	FileName  string `gorm:"size:255;not null"`
	// SourcePath is where the processed file lives on disk, empty when the
	// file was not retained.
	SourcePath  string `gorm:"column:source_path;size:512"`
	ContentType string `gorm:"size:128"`
	Width       int
	Height      int
	DurationMs  int64
	// Mark detection as failed (do not delete the record so admins can review)
	Failed       bool   `gorm:"default:false;index"`
	FailedReason string `gorm:"size:255"`
	Numbers      []DetectionNumber `gorm:"foreignKey:DetectionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// DetectionNumber is one accepted jersey number with its bounding box in
// original image coordinates.
type DetectionNumber struct {
	ID          uint `gorm:"primaryKey"`
	CreatedAt   time.Time
	DetectionID uint   `gorm:"index;not null"`
	Number      string `gorm:"size:8;not null"`
	Confidence  float64
	X           int
	Y           int
	W           int
	H           int
}
