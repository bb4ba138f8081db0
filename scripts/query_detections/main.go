package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type User struct {
	ID       uint
	Username string
}

type Detection struct {
	ID           uint
	UserID       *uint
	FileName     string
	SourcePath   string
	ContentType  string
	Failed       bool
	FailedReason string
	DurationMs   int64
}

type DetectionNumber struct {
	ID          uint
	DetectionID uint
	Number      string
	Confidence  float64
	X, Y, W, H  int
}

// TableName overrides GORM's default pluralization to match the service models.
func (Detection) TableName() string       { return "detections" }
func (DetectionNumber) TableName() string { return "detection_numbers" }

func main() {
	username := flag.String("username", "", "username (empty matches any owner)")
	file := flag.String("file", "", "file name")
	wait := flag.Int("wait", 0, "seconds to wait/poll for the row to appear")
	flag.Parse()
	if *file == "" {
		log.Fatal("--file is required")
	}
	dsn := os.Getenv("DB_DSN")
	if strings.TrimSpace(dsn) == "" {
		log.Fatal("DB_DSN not set in env")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	var userID *uint
	if *username != "" {
		var u User
		if err := db.Where("username = ?", *username).First(&u).Error; err != nil {
			log.Fatalf("user not found: %v", err)
		}
		userID = &u.ID
	}
	deadline := time.Now().Add(time.Duration(*wait) * time.Second)
	for {
		var d Detection
		tx := db.Where("file_name = ?", *file)
		if userID != nil {
			tx = tx.Where("user_id = ?", *userID)
		}
		err := tx.Order("id desc").First(&d).Error
		if err == nil {
			fmt.Printf("detection id=%d failed=%v reason=%q source=%s ct=%s took=%dms\n", d.ID, d.Failed, d.FailedReason, d.SourcePath, d.ContentType, d.DurationMs)
			var nums []DetectionNumber
			if err := db.Where("detection_id = ?", d.ID).Order("confidence desc").Find(&nums).Error; err == nil {
				for _, n := range nums {
					fmt.Printf("  number=%s conf=%.4f box=%d,%d %dx%d\n", n.Number, n.Confidence, n.X, n.Y, n.W, n.H)
				}
			}
			return
		}
		if time.Now().After(deadline) {
			log.Fatalf("not found after %ds waiting", *wait)
		}
		time.Sleep(2 * time.Second)
	}
}
