package report

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"jerseyocr/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func mustDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN not set in env")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	return gdb
}

// RunReport prints a month-bounded detection report (month in YYYY-MM) and
// optionally lists the matching detection rows. An empty username reports
// across all users, anonymous rows included.
func RunReport(username, month string, list bool) {
	gdb := mustDBFromEnv()

	t, err := time.Parse("2006-01", month)
	if err != nil {
		log.Fatalf("invalid month format, expected YYYY-MM: %v", err)
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	cond := "d.created_at >= ? AND d.created_at < ?"
	args := []any{start, end}
	who := "all users"
	if username != "" {
		var user models.User
		if err := gdb.Where("username = ?", username).First(&user).Error; err != nil {
			log.Fatalf("user not found: %v", err)
		}
		cond += " AND d.user_id = ?"
		args = append(args, user.ID)
		who = "user=" + user.Username
	}

	var cnt, failed int64
	var avgMs sql.NullFloat64
	row := gdb.Raw(`SELECT COUNT(*) AS cnt, COUNT(*) FILTER (WHERE d.failed) AS failed, AVG(d.duration_ms) AS avg_ms FROM detections d WHERE `+cond, args...).Row()
	if err := row.Scan(&cnt, &failed, &avgMs); err != nil {
		log.Fatalf("query failed: %v", err)
	}

	fmt.Printf("Detection report for %s month=%s (UTC):\n", who, month)
	fmt.Printf("  photos=%d failed=%d avg_duration_ms=%.1f\n", cnt, failed, avgMs.Float64)

	rows, err := gdb.Raw(`SELECT dn.number, COUNT(*) AS seen, MAX(dn.confidence) AS best FROM detection_numbers dn JOIN detections d ON d.id = dn.detection_id WHERE `+cond+` GROUP BY dn.number ORDER BY seen DESC, best DESC LIMIT 10`, args...).Rows()
	if err != nil {
		log.Fatalf("top numbers query failed: %v", err)
	}
	defer rows.Close()
	fmt.Println("  top numbers:")
	for rows.Next() {
		var number string
		var seen int64
		var best float64
		if err := rows.Scan(&number, &seen, &best); err != nil {
			log.Fatalf("scan failed: %v", err)
		}
		fmt.Printf("    %s seen=%d best_conf=%.2f\n", number, seen, best)
	}

	if list {
		var items []models.Detection
		q := gdb.Preload("Numbers").Where("created_at >= ? AND created_at < ?", start, end)
		if username != "" {
			q = q.Where("user_id = ?", args[len(args)-1])
		}
		if err := q.Order("id").Find(&items).Error; err != nil {
			log.Fatalf("fetch rows failed: %v", err)
		}
		for _, d := range items {
			nums := make([]string, 0, len(d.Numbers))
			for _, n := range d.Numbers {
				nums = append(nums, n.Number)
			}
			fmt.Printf("%d|%s|%s|%s\n", d.ID, d.FileName, strings.Join(nums, ","), d.CreatedAt.Format(time.RFC3339))
		}
	}
}
