package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"jerseyocr/pkg/detect"

	"github.com/sirupsen/logrus"
)

func main() {
	img := flag.String("img", "tmp/test.png", "image file to detect numbers on")
	flag.Parse()
	p, _ := filepath.Abs(*img)
	fmt.Printf("Running detection on %s\n", p)

	eng := detect.NewTesseractEngine(detect.EngineConfigFromEnv())
	defer eng.Close()
	if err := eng.Ready(); err != nil {
		log.Fatalf("engine not ready: %v", err)
	}
	pipe := detect.NewPipeline(eng, detect.ConfigFromEnv(), logrus.StandardLogger())
	results, err := pipe.ExtractNumbersFromFile(p)
	if err != nil {
		log.Fatalf("ExtractNumbersFromFile error: %v", err)
	}
	if len(results) == 0 {
		fmt.Println("no numbers accepted")
		return
	}
	for _, r := range results {
		fmt.Printf("number=%s conf=%.2f box=%v\n", r.Number, r.Confidence, r.Box)
	}
}
