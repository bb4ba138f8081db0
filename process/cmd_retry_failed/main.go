package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"jerseyocr/pkg/detect"

	"github.com/disintegration/imaging"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func main() {
	user := flag.String("user", "", "only retry detections belonging to this username")
	dir := flag.String("dir", "public/photos", "base dir for files without a stored path")
	flag.Parse()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	eng := detect.NewTesseractEngine(detect.EngineConfigFromEnv())
	defer eng.Close()
	lg := logrus.New()
	lg.SetLevel(logrus.WarnLevel)
	p := detect.NewPipeline(eng, detect.ConfigFromEnv(), lg)

	query := `SELECT d.id, d.file_name, d.source_path FROM detections d WHERE (d.failed OR NOT EXISTS (SELECT 1 FROM detection_numbers dn WHERE dn.detection_id = d.id))`
	var rows *sql.Rows
	if *user != "" {
		rows, err = db.Query(query+` AND d.user_id = (SELECT id FROM users WHERE username = $1)`, *user)
	} else {
		rows, err = db.Query(query)
	}
	if err != nil {
		log.Fatalf("query: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int
		var fname string
		var store sql.NullString
		if err := rows.Scan(&id, &fname, &store); err != nil {
			log.Printf("scan: %v", err)
			continue
		}
		path := fname
		if store.Valid && store.String != "" {
			path = store.String
		} else {
			path = *dir + "/" + fname
		}

		// aggressive preprocessing: open, sharpen, increase contrast, save temp
		img, err := imaging.Open(path)
		if err != nil {
			log.Printf("open %s: %v", path, err)
			continue
		}
		proc := imaging.Sharpen(img, 2.0)
		proc = imaging.AdjustContrast(proc, 30)
		tmp := path + ".retry.png"
		if err := imaging.Save(proc, tmp); err != nil {
			log.Printf("save tmp %s: %v", tmp, err)
			continue
		}

		results, err := p.ExtractNumbersFromFile(tmp)
		_ = os.Remove(tmp)
		if err != nil {
			log.Printf("detect %s: %v", path, err)
			continue
		}
		if len(results) == 0 {
			log.Printf("no numbers found for id=%d file=%s", id, fname)
			continue
		}

		// apply update: replace numbers and clear the failed flag
		if _, err := db.Exec(`DELETE FROM detection_numbers WHERE detection_id=$1`, id); err != nil {
			log.Printf("clear numbers id=%d: %v", id, err)
			continue
		}
		for _, r := range results {
			if _, err := db.Exec(`INSERT INTO detection_numbers (created_at, detection_id, number, confidence, x, y, w, h) VALUES (now(), $1, $2, $3, $4, $5, $6, $7)`,
				id, r.Number, r.Confidence, r.Box.Min.X, r.Box.Min.Y, r.Box.Dx(), r.Box.Dy()); err != nil {
				log.Printf("insert number id=%d: %v", id, err)
			}
		}
		if _, err := db.Exec(`UPDATE detections SET failed=false, failed_reason='' WHERE id=$1`, id); err != nil {
			log.Printf("update id=%d: %v", id, err)
			continue
		}
		fmt.Printf("updated id=%d file=%s numbers=%d best=%.2f\n", id, fname, len(results), results[0].Confidence)
	}
}
