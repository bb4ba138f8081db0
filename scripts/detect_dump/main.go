package main

import (
	"flag"
	"fmt"
	"log"

	"jerseyocr/pkg/detect"

	"github.com/disintegration/imaging"
)

func main() {
	path := flag.String("path", "", "image path")
	flag.Parse()
	if *path == "" {
		log.Fatal("--path is required")
	}
	img, err := imaging.Open(*path)
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	eng := detect.NewTesseractEngine(detect.EngineConfigFromEnv())
	defer eng.Close()
	cfg := detect.ConfigFromEnv()

	// Raw word geometry per variant, with the top-left corner mapped back
	// into original image coordinates.
	for _, v := range detect.GenerateVariants(img, cfg) {
		dets, err := eng.Recognize(v.Img)
		if err != nil {
			log.Printf("recognize %s: %v", v.Name, err)
			continue
		}
		for _, d := range dets {
			ox := int(float64(d.Quad[0].X)/v.SX) + v.OX
			oy := int(float64(d.Quad[0].Y)/v.SY) + v.OY
			fmt.Printf("%s text=%q conf=%.4f at=%d,%d orig=%d,%d\n", v.Name, d.Text, d.Confidence, d.Quad[0].X, d.Quad[0].Y, ox, oy)
		}
	}
}
