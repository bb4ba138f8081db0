package detect

import (
	"os"
	"strconv"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// ConfigFromEnv builds the pipeline tuning, starting from the defaults and
// applying DETECT_* overrides. The server and the batch tools share it so
// one environment drives them all identically.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.MaxDimension = envInt("DETECT_MAX_DIMENSION", cfg.MaxDimension)
	cfg.MinDimension = envInt("DETECT_MIN_DIMENSION", cfg.MinDimension)
	cfg.ContrastBoost = envFloat("DETECT_CONTRAST", cfg.ContrastBoost)
	cfg.SharpenSigma = envFloat("DETECT_SHARPEN", cfg.SharpenSigma)
	cfg.DenoiseRadius = envInt("DETECT_DENOISE_RADIUS", cfg.DenoiseRadius)
	cfg.AdaptiveWindow = envInt("DETECT_ADAPTIVE_WINDOW", cfg.AdaptiveWindow)
	cfg.AdaptiveBias = envInt("DETECT_ADAPTIVE_BIAS", cfg.AdaptiveBias)
	cfg.DilateRadius = envInt("DETECT_DILATE_RADIUS", cfg.DilateRadius)
	if v := envInt("DETECT_GLOBAL_THRESHOLD", 0); v > 0 && v < 256 {
		cfg.GlobalThreshold = uint8(v)
	}
	cfg.UpscaleFactors = parseFactors(os.Getenv("DETECT_UPSCALE_FACTORS"))
	cfg.CropColumns = envInt("DETECT_CROP_COLUMNS", cfg.CropColumns)
	cfg.MinDigits = envInt("DETECT_MIN_DIGITS", cfg.MinDigits)
	cfg.MaxDigits = envInt("DETECT_MAX_DIGITS", cfg.MaxDigits)
	cfg.MaxValue = envInt("DETECT_MAX_VALUE", cfg.MaxValue)
	cfg.StripLeadingZeros = envBool("DETECT_STRIP_ZEROS", cfg.StripLeadingZeros)
	cfg.PartialPenalty = envFloat("DETECT_PARTIAL_PENALTY", cfg.PartialPenalty)
	cfg.Thresholds.SingleDigit = envFloat("DETECT_MIN_CONF_SINGLE", cfg.Thresholds.SingleDigit)
	cfg.Thresholds.MultiDigit = envFloat("DETECT_MIN_CONF_MULTI", cfg.Thresholds.MultiDigit)
	cfg.Thresholds.Corroborated = envFloat("DETECT_MIN_CONF_CORROBORATED", cfg.Thresholds.Corroborated)
	return cfg
}

// EngineConfigFromEnv builds the Tesseract settings with OCR_* overrides.
func EngineConfigFromEnv() EngineConfig {
	cfg := DefaultEngineConfig()
	cfg.Language = envStr("OCR_LANGUAGE", cfg.Language)
	cfg.Whitelist = envStr("OCR_WHITELIST", cfg.Whitelist)
	if v := envInt("OCR_PSM", -1); v >= 0 {
		cfg.PageSegMode = gosseract.PageSegMode(v)
	}
	cfg.TessdataPrefix = os.Getenv("TESSDATA_PREFIX")
	return cfg
}

// parseFactors parses a comma separated list of scale factors, skipping
// anything that is not a float above 1.
func parseFactors(s string) []float64 {
	if s == "" {
		return nil
	}
	var out []float64
	for _, part := range strings.Split(s, ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || f <= 1 {
			continue
		}
		out = append(out, f)
	}
	return out
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envBool(key string, def bool) bool {
	v := strings.ToLower(os.Getenv(key))
	if v == "" {
		return def
	}
	return !(v == "false" || v == "0" || v == "no")
}
