package detect

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Detection is one text fragment located by the recognition engine, in the
// coordinate space of the variant it was recognized on.
type Detection struct {
	// Quad lists the region corners clockwise from the top left.
	Quad       [4]image.Point
	Text       string
	Confidence float64
}

// Engine runs text recognition over a single image variant.
type Engine interface {
	Recognize(img image.Image) ([]Detection, error)
}

// EngineConfig tunes the Tesseract client.
type EngineConfig struct {
	// Language is the traineddata name.
	Language string
	// Whitelist restricts recognition to the listed characters.
	Whitelist string
	// PageSegMode selects the segmentation strategy. Zero leaves the client
	// default in place.
	PageSegMode gosseract.PageSegMode
	// TessdataPrefix overrides the traineddata directory when non-empty.
	TessdataPrefix string
}

// DefaultEngineConfig returns settings tuned for digits scattered over a
// photo.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Language:    "eng",
		Whitelist:   "0123456789",
		PageSegMode: gosseract.PSM_SPARSE_TEXT,
	}
}

// TesseractEngine wraps one long lived gosseract client. The client is
// created on the first call; if the full configuration fails the engine
// retries once with a reduced configuration before giving up, and the
// failure is sticky after that. Calls are serialized because the client is
// not safe for concurrent use.
type TesseractEngine struct {
	cfg EngineConfig

	mu      sync.Mutex
	once    sync.Once
	client  *gosseract.Client
	initErr error
}

// NewTesseractEngine returns an engine that initializes lazily on the first
// Recognize or Ready call.
func NewTesseractEngine(cfg EngineConfig) *TesseractEngine {
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	return &TesseractEngine{cfg: cfg}
}

func (e *TesseractEngine) configure(cl *gosseract.Client, full bool) error {
	if e.cfg.TessdataPrefix != "" {
		cl.TessdataPrefix = e.cfg.TessdataPrefix
	}
	if err := cl.SetLanguage(e.cfg.Language); err != nil {
		return fmt.Errorf("set language %q: %w", e.cfg.Language, err)
	}
	if !full {
		return nil
	}
	if e.cfg.Whitelist != "" {
		if err := cl.SetWhitelist(e.cfg.Whitelist); err != nil {
			return fmt.Errorf("set whitelist: %w", err)
		}
	}
	if e.cfg.PageSegMode != 0 {
		if err := cl.SetPageSegMode(e.cfg.PageSegMode); err != nil {
			return fmt.Errorf("set page seg mode: %w", err)
		}
	}
	return nil
}

func (e *TesseractEngine) initClient() {
	cl := gosseract.NewClient()
	if err := e.configure(cl, true); err != nil {
		cl.Close()
		cl = gosseract.NewClient()
		if err2 := e.configure(cl, false); err2 != nil {
			cl.Close()
			e.initErr = fmt.Errorf("%w: %v", ErrEngineInit, err2)
			return
		}
	}
	e.client = cl
}

func (e *TesseractEngine) ensure() error {
	e.once.Do(e.initClient)
	return e.initErr
}

// Ready forces initialization and reports whether the engine is usable.
func (e *TesseractEngine) Ready() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ensure()
}

// Close releases the underlying client.
func (e *TesseractEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}

// Recognize runs Tesseract over img and reports word level detections.
func (e *TesseractEngine) Recognize(img image.Image) ([]Detection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensure(); err != nil {
		return nil, err
	}
	if e.client == nil {
		return nil, fmt.Errorf("engine is closed")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode variant: %w", err)
	}
	if err := e.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("bounding boxes: %w", err)
	}
	dets := make([]Detection, 0, len(boxes))
	for _, b := range boxes {
		word := strings.TrimSpace(b.Word)
		if word == "" {
			continue
		}
		dets = append(dets, Detection{
			Quad:       rectQuad(b.Box),
			Text:       word,
			Confidence: b.Confidence / 100,
		})
	}
	return dets, nil
}

func rectQuad(r image.Rectangle) [4]image.Point {
	return [4]image.Point{
		{r.Min.X, r.Min.Y},
		{r.Max.X, r.Min.Y},
		{r.Max.X, r.Max.Y},
		{r.Min.X, r.Max.Y},
	}
}
