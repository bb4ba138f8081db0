package detect

// Thresholds holds the minimum confidence a number group must reach to be
// accepted, depending on how it was observed.
type Thresholds struct {
	// SingleDigit applies to one-digit numbers seen in a single detection.
	SingleDigit float64
	// MultiDigit applies to two-digit numbers seen in a single detection.
	MultiDigit float64
	// Corroborated applies to any number observed by two or more detections.
	Corroborated float64
}

// Config controls variant generation and number extraction. The zero value is
// not usable; start from DefaultConfig and override fields as needed.
type Config struct {
	// MaxDimension is the size the longest image side is reduced to before
	// any variant is generated. Zero disables the reduction.
	MaxDimension int
	// MinDimension upscales images whose longest side is below it. Zero
	// disables upscaling.
	MinDimension int

	// ContrastBoost is the percentage passed to contrast adjustment when
	// building the enhanced variant.
	ContrastBoost float64
	// SharpenSigma is the sharpening strength for the enhanced variant.
	SharpenSigma float64
	// DenoiseRadius is the median filter radius applied before contrast
	// adjustment. Zero skips denoising.
	DenoiseRadius int

	// AdaptiveWindow and AdaptiveBias control the mean adaptive threshold
	// used for the thresholded variant.
	AdaptiveWindow int
	AdaptiveBias   int
	// DilateRadius thickens strokes on the thresholded variant. Zero skips
	// dilation.
	DilateRadius int
	// GlobalThreshold, when non-zero, adds a globally binarized variant.
	GlobalThreshold uint8
	// UpscaleFactors adds one enlarged variant per factor.
	UpscaleFactors []float64
	// CropColumns, when at least 2, adds that many vertical slice variants,
	// each carrying its own origin offset.
	CropColumns int

	// MinDigits and MaxDigits bound the length of an accepted number.
	MinDigits int
	MaxDigits int
	// MaxValue bounds the numeric value of an accepted number.
	MaxValue int
	// StripLeadingZeros normalizes "07" to "7" before validation.
	StripLeadingZeros bool
	// PartialPenalty scales the confidence of a number that covers only part
	// of the recognized text.
	PartialPenalty float64

	Thresholds Thresholds
}

// DefaultConfig returns the tuning used in production for jersey numbers:
// numbers of one or two digits, values 0 through 99.
func DefaultConfig() Config {
	return Config{
		MaxDimension:      1600,
		MinDimension:      0,
		ContrastBoost:     15,
		SharpenSigma:      0.7,
		DenoiseRadius:     1,
		AdaptiveWindow:    15,
		AdaptiveBias:      5,
		DilateRadius:      0,
		GlobalThreshold:   0,
		CropColumns:       0,
		MinDigits:         1,
		MaxDigits:         2,
		MaxValue:          99,
		StripLeadingZeros: true,
		PartialPenalty:    0.80,
		Thresholds: Thresholds{
			SingleDigit:  0.30,
			MultiDigit:   0.25,
			Corroborated: 0.20,
		},
	}
}

// minConfidence returns the acceptance threshold for a number of the given
// length, observed by the given count of detections.
func (c Config) minConfidence(numberLen, observations int) float64 {
	min := c.Thresholds.MultiDigit
	if numberLen == 1 {
		min = c.Thresholds.SingleDigit
	}
	if observations >= 2 {
		min = c.Thresholds.Corroborated
	}
	return min
}
