package constants

// Pipeline defaults.
const (
	DefaultDPI      = 200
	DefaultLanguage = "eng"

	// TesseractPSM is "assume a single uniform block of text".
	TesseractPSM = 6

	// MaxDPI caps caller overrides; bitmap memory grows with the square of DPI.
	MaxDPI = 600
)

// Color modes.
const (
	ColorGrayscale = "grayscale"
	ColorFull      = "color"
)

// Concurrency modes.
const (
	ModeParallel   = "parallel"
	ModeSequential = "sequential"
)
