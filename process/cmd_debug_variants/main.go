package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"jerseyocr/pkg/detect"

	"github.com/disintegration/imaging"
)

func main() {
	f := flag.String("file", "", "image file to expand into variants")
	outDir := flag.String("out", "/tmp", "directory to write variant images to")
	flag.Parse()
	if *f == "" {
		log.Fatalf("-file required")
	}
	img, err := imaging.Open(*f)
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	variants := detect.GenerateVariants(img, detect.ConfigFromEnv())
	base := filepath.Base(*f)
	for _, v := range variants {
		out := filepath.Join(*outDir, fmt.Sprintf("%s.%s.png", base, v.Name))
		if err := imaging.Save(v.Img, out); err != nil {
			log.Fatalf("save %s: %v", out, err)
		}
		b := v.Img.Bounds()
		fmt.Printf("%s %dx%d scale=%.3f,%.3f offset=%d,%d -> %s\n", v.Name, b.Dx(), b.Dy(), v.SX, v.SY, v.OX, v.OY, out)
	}
}
