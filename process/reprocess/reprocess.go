package reprocess

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"jerseyocr/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"jerseyocr/pkg/detect"
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

func newPipeline() (*detect.Pipeline, func()) {
	eng := detect.NewTesseractEngine(detect.EngineConfigFromEnv())
	lg := logrus.New()
	lg.SetLevel(logrus.WarnLevel)
	return detect.NewPipeline(eng, detect.ConfigFromEnv(), lg), func() { _ = eng.Close() }
}

// Run scans dir for photos, re-runs number detection, and replaces the stored
// numbers on the matching Detection row.
// If dry true, only prints proposed changes.
func Run(dir string, dry bool, minConf float64) error {
	gdb := mustDBFromEnv()
	p, closeEngine := newPipeline()
	defer closeEngine()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		full := filepath.Join(dir, name)
		results, err := p.ExtractNumbersFromFile(full)
		if err != nil {
			log.Printf("detect error %s: %v", name, err)
			continue
		}
		if len(results) == 0 || results[0].Confidence < minConf {
			log.Printf("detect skipped %s results=%d (min=%.2f)", name, len(results), minConf)
			continue
		}

		// find the detection row for this filename (latest wins)
		var det models.Detection
		if err := gdb.Where("file_name = ?", name).Order("id desc").First(&det).Error; err != nil {
			log.Printf("no detection found for %s: %v", name, err)
			continue
		}

		if dry {
			fmt.Printf("DRY: would update detection id=%d file=%s numbers=%s best_conf=%.2f\n", det.ID, name, joinNumbers(results), results[0].Confidence)
			continue
		}

		if err := gdb.Where("detection_id = ?", det.ID).Delete(&models.DetectionNumber{}).Error; err != nil {
			log.Printf("failed clear numbers %s: %v", name, err)
			continue
		}
		for _, r := range results {
			n := models.DetectionNumber{
				DetectionID: det.ID,
				Number:      r.Number,
				Confidence:  r.Confidence,
				X:           r.Box.Min.X,
				Y:           r.Box.Min.Y,
				W:           r.Box.Dx(),
				H:           r.Box.Dy(),
			}
			if err := gdb.Create(&n).Error; err != nil {
				log.Printf("failed insert number %s: %v", name, err)
			}
		}
		if err := gdb.Model(&det).Updates(map[string]any{"failed": false, "failed_reason": ""}).Error; err != nil {
			log.Printf("failed update detection %s: %v", name, err)
		} else {
			fmt.Printf("updated detection id=%d file=%s numbers=%s\n", det.ID, name, joinNumbers(results))

			// after successful DB update, move the processed file out of the scan dir
			if err := moveToProcessed(full, dir, name); err != nil {
				log.Printf("WARN failed to move processed file %s: %v", name, err)
			} else {
				log.Printf("moved processed %s", name)
			}
		}
	}
	return nil
}

func joinNumbers(results []detect.Result) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, r.Number)
	}
	return strings.Join(parts, ",")
}

// moveToProcessed moves a file into <parent-of-dir>/processed/<name>.
// It attempts an atomic rename and falls back to copy+remove when necessary.
func moveToProcessed(srcFullPath, dir, name string) error {
	processedDir := filepath.Join(filepath.Dir(filepath.Clean(dir)), "processed")
	if err := os.MkdirAll(processedDir, 0o755); err != nil {
		return err
	}
	dst := filepath.Join(processedDir, name)
	// try rename
	if err := os.Rename(srcFullPath, dst); err == nil {
		return nil
	}
	// fallback: copy then remove
	in, err := os.Open(srcFullPath)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()
	if _, err := io.Copy(out, in); err != nil {
		_ = os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		// ignore
	}
	if err := os.Remove(srcFullPath); err != nil {
		return err
	}
	return nil
}
