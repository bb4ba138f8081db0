package main

import "jerseyocr/process/sanitize"

func main() {
	sanitize.Run()
}
