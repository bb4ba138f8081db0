package main

import (
	"flag"
	"fmt"
	"log"

	"jerseyocr/pkg/detect"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
)

func main() {
	f := flag.String("file", "", "image file to detect numbers in")
	raw := flag.Bool("raw", false, "also print raw engine output per variant")
	flag.Parse()
	if *f == "" {
		log.Fatalf("-file required")
	}
	img, err := imaging.Open(*f)
	if err != nil {
		log.Fatalf("open: %v", err)
	}

	eng := detect.NewTesseractEngine(detect.EngineConfigFromEnv())
	defer eng.Close()
	cfg := detect.ConfigFromEnv()

	if *raw {
		for _, v := range detect.GenerateVariants(img, cfg) {
			dets, err := eng.Recognize(v.Img)
			if err != nil {
				log.Printf("recognize %s: %v", v.Name, err)
				continue
			}
			for _, d := range dets {
				fmt.Printf("%s text=%q conf=%.4f box=%v\n", v.Name, d.Text, d.Confidence, d.Quad)
			}
		}
	}

	lg := logrus.New()
	lg.SetLevel(logrus.DebugLevel)
	p := detect.NewPipeline(eng, cfg, lg)
	for _, r := range p.ExtractNumbers(img) {
		fmt.Printf("number=%s conf=%.4f box=%v\n", r.Number, r.Confidence, r.Box)
	}
}
