package detect

import (
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	// Registers WEBP with image.Decode, which imaging.Open relies on.
	_ "golang.org/x/image/webp"
)

// Pipeline runs the full detection sequence: variant generation, one
// recognition pass per variant, candidate collection and aggregation.
type Pipeline struct {
	eng Engine
	cfg Config
	log *logrus.Logger
}

// NewPipeline wires an engine and a config together. A nil logger falls back
// to the logrus standard logger.
func NewPipeline(eng Engine, cfg Config, log *logrus.Logger) *Pipeline {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pipeline{eng: eng, cfg: cfg, log: log}
}

// Config returns the pipeline tuning.
func (p *Pipeline) Config() Config { return p.cfg }

// passOutcome records one recognition pass over a variant.
type passOutcome struct {
	variant    Variant
	detections []Detection
	err        error
}

// ExtractNumbers detects jersey numbers on img, strongest first. A failed
// recognition pass is logged and skipped, the remaining variants still
// contribute.
func (p *Pipeline) ExtractNumbers(img image.Image) []Result {
	start := time.Now()
	variants := GenerateVariants(img, p.cfg)

	outcomes := make([]passOutcome, 0, len(variants))
	for _, v := range variants {
		dets, err := p.eng.Recognize(v.Img)
		outcomes = append(outcomes, passOutcome{variant: v, detections: dets, err: err})
	}

	var cands []Candidate
	failed := 0
	for _, oc := range outcomes {
		if oc.err != nil {
			failed++
			p.log.WithError(oc.err).WithField("variant", oc.variant.Name).Warn("recognition pass failed")
			continue
		}
		if p.log.IsLevelEnabled(logrus.DebugLevel) {
			texts := make([]string, 0, len(oc.detections))
			for _, d := range oc.detections {
				texts = append(texts, d.Text)
			}
			p.log.WithFields(logrus.Fields{
				"variant": oc.variant.Name,
				"words":   len(oc.detections),
				"text":    snippet(normalizeText(strings.Join(texts, " ")), 120),
			}).Debug("recognition pass")
		}
		for _, d := range oc.detections {
			cands = append(cands, collectCandidates(d, oc.variant, p.cfg)...)
		}
	}

	results := aggregate(cands, p.cfg)
	p.log.WithFields(logrus.Fields{
		"variants":   len(variants),
		"failed":     failed,
		"candidates": len(cands),
		"numbers":    len(results),
		"elapsed_ms": time.Since(start).Milliseconds(),
	}).Info("detection finished")
	return results
}

// ExtractNumbersFromFile opens path and runs ExtractNumbers on it.
func (p *Pipeline) ExtractNumbersFromFile(path string) ([]Result, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return p.ExtractNumbers(img), nil
}
