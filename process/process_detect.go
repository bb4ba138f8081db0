package main

import (
	"flag"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"jerseyocr/models"
	"jerseyocr/pkg/detect"
)

// Global DB handle for helper funcs
var db *gorm.DB

// global flags (parsed in main)
var (
	verbose        bool
	simulateDetect bool
)

// MIME mapping to avoid opening files repeatedly
var extMime = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// preload cache of already ingested photos
type preloadState struct {
	byFile map[string]*models.Detection // fileName -> detection
	mu     sync.RWMutex
}

func newPreloadState() *preloadState {
	return &preloadState{byFile: make(map[string]*models.Detection, 1024)}
}

func (ps *preloadState) get(name string) (*models.Detection, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	d, ok := ps.byFile[name]
	return d, ok
}
func (ps *preloadState) put(d *models.Detection) {
	ps.mu.Lock()
	ps.byFile[d.FileName] = d
	ps.mu.Unlock()
}

func mustInitDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatalf("DB_DSN must be set in environment to run this tool")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return gdb
}

// Main: scans a directory of jersey photos, runs number detection on each, stores Detection rows, optional watch mode.
func main() {
	dirFlag := flag.String("dir", "public/photos", "directory to scan for jersey photos")
	username := flag.String("user", "", "username to attribute detections to (empty stores them unattributed)")
	dryRun := flag.Bool("dry-run", false, "Skip all DB queries and writes; just list / optionally detect (see --simulate)")
	watch := flag.Bool("watch", false, "Watch directory for new files")
	workers := flag.Int("workers", 0, "Worker pool size (default NumCPU)")
	flag.BoolVar(&verbose, "verbose", false, "Verbose per-file logging")
	flag.BoolVar(&simulateDetect, "simulate", false, "In dry-run: actually run detection to show potential numbers")
	flag.Parse()

	if *dryRun {
		// fast dry-run path, no DB interaction at all
		log.Printf("Dry-run: scanning %s (no DB interaction)", *dirFlag)
		files := listImageFiles(*dirFlag)
		log.Printf("Found %d candidate files", len(files))
		if simulateDetect {
			p, closeEngine := newWorkerPipeline()
			defer closeEngine()
			for _, f := range files {
				results, err := p.ExtractNumbersFromFile(filepath.Join(*dirFlag, f))
				if err != nil {
					logV("DETECT fail %s: %v", f, err)
					continue
				}
				for _, r := range results {
					logV("DETECT %s number=%s conf=%.2f", f, r.Number, r.Confidence)
				}
			}
		}
		return
	}

	db = mustInitDBFromEnv()
	userID := resolveUserID(*username)
	// preload already ingested rows
	ps := preloadAll(userID)
	log.Printf("Preloaded: detections=%d", len(ps.byFile))

	// gather initial file list
	files := listImageFiles(*dirFlag)
	log.Printf("Scanning %d files (workers=%d)", len(files), effectiveWorkers(*workers))
	runWorkerPool(*dirFlag, userID, ps, files, effectiveWorkers(*workers))

	if *watch {
		if err := watchDirectory(*dirFlag, userID, ps, effectiveWorkers(*workers)); err != nil {
			log.Fatalf("watch failed: %v", err)
		}
	}
}

func effectiveWorkers(w int) int {
	if w <= 0 {
		return runtime.NumCPU()
	}
	return w
}

func logV(format string, args ...any) {
	if verbose {
		log.Printf(format, args...)
	}
}

// newWorkerPipeline builds a pipeline with its own engine so workers never
// contend on a single tesseract client.
func newWorkerPipeline() (*detect.Pipeline, func()) {
	eng := detect.NewTesseractEngine(detect.EngineConfigFromEnv())
	lg := logrus.New()
	if verbose {
		lg.SetLevel(logrus.DebugLevel)
	} else {
		lg.SetLevel(logrus.WarnLevel)
	}
	return detect.NewPipeline(eng, detect.ConfigFromEnv(), lg), func() { _ = eng.Close() }
}

// preloadAll fetches already ingested detections to minimize per-file queries.
func preloadAll(userID *uint) *preloadState {
	ps := newPreloadState()
	q := db.Where("source_path <> ''")
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}
	var dets []models.Detection
	if err := q.Find(&dets).Error; err == nil {
		for i := range dets {
			d := dets[i]
			ps.byFile[d.FileName] = &d
		}
	}
	return ps
}

// resolveUserID maps the optional -user flag to a user id.
func resolveUserID(username string) *uint {
	if username == "" {
		return nil
	}
	var u models.User
	if err := db.Where("username = ?", username).First(&u).Error; err != nil {
		log.Fatalf("user %q not found: %v", username, err)
	}
	id := u.ID
	return &id
}

func listImageFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !isSupportedExt(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func watchDirectory(dir string, userID *uint, ps *preloadState, workers int) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	log.Printf("Watching %s (debounced) ...", dir)

	fileCh := make(chan string, 256)
	go func() {
		// simple debounce map of pending files
		pending := map[string]time.Time{}
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					close(fileCh)
					return
				}
				if ev.Op&fsnotify.Create == fsnotify.Create {
					name := filepath.Base(ev.Name)
					if !isSupportedExt(name) {
						continue
					}
					pending[name] = time.Now()
				}
			case <-ticker.C:
				now := time.Now()
				for name, t := range pending {
					if now.Sub(t) > 300*time.Millisecond { // stable
						fileCh <- name
						delete(pending, name)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					close(fileCh)
					return
				}
				log.Printf("watch error: %v", err)
			}
		}
	}()

	// Use worker pool for watch events too
	go runWorkerPool(dir, userID, ps, nil, workers, fileCh)
	// block forever (Ctrl+C to exit)
	select {}
}

func isSupportedExt(name string) bool {
	// ignore retry temp files to avoid recursive processing
	if strings.Contains(name, ".retry.") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp":
		return true
	}
	return false
}

// worker pool orchestrator
func runWorkerPool(dir string, userID *uint, ps *preloadState, initial []string, workers int, extraCh ...<-chan string) {
	fileCh := make(chan string, 1024)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, closeEngine := newWorkerPipeline()
			defer closeEngine()
			for name := range fileCh {
				processSingleFile(dir, name, userID, ps, p)
			}
		}()
	}
	// feed initial
	go func() {
		for _, f := range initial {
			fileCh <- f
		}
		// also relay from extra channels if provided
		for _, ch := range extraCh {
			go func(c <-chan string) {
				for n := range c {
					fileCh <- n
				}
			}(ch)
		}
		// if no extraCh (scan only) close when done
		if len(extraCh) == 0 {
			close(fileCh)
		}
	}()
	if len(extraCh) == 0 {
		wg.Wait()
	}
}

// processSingleFile ingests a single photo using the preloaded map & minimal queries.
func processSingleFile(dir, name string, userID *uint, ps *preloadState, p *detect.Pipeline) {
	if _, ok := ps.get(name); ok { // already ingested
		logV("SKIP already ingested %s", name)
		return
	}
	filePath := filepath.Join(dir, name)

	det := models.Detection{
		UserID:     userID,
		FileName:   name,
		SourcePath: filepath.ToSlash(filePath),
	}
	if ct := mimeFromExt(name); ct != "" {
		det.ContentType = ct
	} else if ct := sniffContentType(filePath); ct != "" {
		det.ContentType = ct
	}

	start := time.Now()
	img, err := imaging.Open(filePath)
	if err != nil {
		// record the failure but leave the file in place so a retry run can pick it up
		det.Failed = true
		det.FailedReason = "decode failed"
		det.DurationMs = time.Since(start).Milliseconds()
		if err2 := db.Create(&det).Error; err2 != nil {
			log.Printf("ERROR record failure %s: %v", name, err2)
			return
		}
		ps.put(&det)
		log.Printf("FAIL decode file=%s: %v", name, err)
		return
	}
	det.Width = img.Bounds().Dx()
	det.Height = img.Bounds().Dy()

	results := p.ExtractNumbers(img)
	det.DurationMs = time.Since(start).Milliseconds()
	for _, r := range results {
		det.Numbers = append(det.Numbers, models.DetectionNumber{
			Number:     r.Number,
			Confidence: r.Confidence,
			X:          r.Box.Min.X,
			Y:          r.Box.Min.Y,
			W:          r.Box.Dx(),
			H:          r.Box.Dy(),
		})
	}
	if err := db.Create(&det).Error; err != nil {
		log.Printf("ERROR create detection %s: %v", name, err)
		return
	}
	ps.put(&det)
	log.Printf("DETECTED file=%s numbers=%d id=%d", name, len(det.Numbers), det.ID)

	// Move the ingested photo into the processed dir so rescans stay cheap
	dst, err := moveToProcessed(filePath, dir, name)
	if err != nil {
		log.Printf("WARN failed to move processed file %s: %v", name, err)
		return
	}
	if err := db.Model(&det).Update("source_path", filepath.ToSlash(dst)).Error; err != nil {
		log.Printf("WARN update source path %s: %v", name, err)
	}
	logV("moved processed %s to %s", name, dst)
}

// sniffContentType reads first 512 bytes and returns MIME type.
func sniffContentType(path string) string { // fallback only
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	if n == 0 {
		return ""
	}
	return http.DetectContentType(buf[:n])
}

func mimeFromExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if m, ok := extMime[ext]; ok {
		return m
	}
	return "" // sniff later if needed
}

// moveToProcessed moves an ingested photo into <parent-of-dir>/processed/<name>.
// It attempts an atomic rename and falls back to copy+remove when necessary.
// Oversized photos get resized down to roughly the byte budget first.
func moveToProcessed(srcFullPath, dir, name string) (string, error) {
	const maxBytes = 4 << 20 // 4 MB budget
	processedDir := filepath.Join(filepath.Dir(filepath.Clean(dir)), "processed")
	if err := os.MkdirAll(processedDir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(processedDir, name)

	fi, err := os.Stat(srcFullPath)
	if err != nil {
		return "", err
	}
	// Fast path: already small enough -> attempt rename/copy
	if fi.Size() <= maxBytes {
		if err := os.Rename(srcFullPath, dst); err == nil {
			return dst, nil
		}
		return dst, copyRemove(srcFullPath, dst)
	}
	// Need compression / resizing
	img, err := imaging.Open(srcFullPath)
	if err != nil { // fallback to raw move if cannot decode
		if err := os.Rename(srcFullPath, dst); err == nil {
			return dst, nil
		}
		return dst, copyRemove(srcFullPath, dst)
	}
	// Estimate scale factor based on sqrt(max/current) (size roughly scales with area)
	scale := math.Sqrt(float64(maxBytes) / float64(fi.Size()))
	if scale > 0.95 { // still enforce some small reduction to help container formats
		scale = 0.95
	}
	if scale < 0.1 { // avoid absurd downscale
		scale = 0.1
	}
	if scale < 1 {
		w := img.Bounds().Dx()
		h := img.Bounds().Dy()
		newW := int(math.Max(1, math.Round(float64(w)*scale)))
		newH := int(math.Max(1, math.Round(float64(h)*scale)))
		img = imaging.Resize(img, newW, newH, imaging.Lanczos)
	}
	// Save to dst (overwrite if exists)
	if err := imaging.Save(img, dst); err != nil {
		// fallback to original move
		if err := os.Rename(srcFullPath, dst); err == nil {
			return dst, nil
		}
		return dst, copyRemove(srcFullPath, dst)
	}
	// Remove original after successful save
	_ = os.Remove(srcFullPath)
	// If still > maxBytes, try one more uniform 80% scale pass
	if fi2, err2 := os.Stat(dst); err2 == nil && fi2.Size() > maxBytes {
		img2, errOpen2 := imaging.Open(dst)
		if errOpen2 == nil {
			img2 = imaging.Resize(img2, int(float64(img2.Bounds().Dx())*0.8), 0, imaging.Lanczos)
			_ = imaging.Save(img2, dst)
		}
	}
	return dst, nil
}

func copyRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	_ = out.Close()
	if err := os.Remove(src); err != nil {
		return err
	}
	return nil
}
