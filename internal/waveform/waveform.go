// Package waveform maps precomputed amplitude peaks and a playback position
// to a scrubber rendering, and maps pointer positions back to seek ratios.
// Everything here is a pure function: no engine access, no state.
package waveform

import (
	"math"
)

// flatBarHeight is the uniform height used when no peaks are available.
const flatBarHeight = 0.5

// Bar is one rendered scrubber column. Height is normalized to 0..1; Elapsed
// marks bars left of the playback position, which render in the "elapsed"
// style while the rest render in the "remaining" style.
type Bar struct {
	Height  float64
	Elapsed bool
}

// Render produces one bar per pixel of width. Peaks are bucketed down (or
// stretched up) to the width, keeping the loudest sample of each bucket so
// transients stay visible. With no peaks it falls back to a flat bar whose
// filled portion is proportional to progress/duration, so the scrubber stays
// functional for tracks without analysis data.
func Render(peaks []float64, duration, progress float64, width int) []Bar {
	if width <= 0 {
		return nil
	}

	frac := Fraction(progress, duration)
	elapsed := int(math.Round(frac * float64(width)))

	bars := make([]Bar, width)
	for x := range bars {
		bars[x] = Bar{
			Height:  flatBarHeight,
			Elapsed: x < elapsed,
		}
	}

	if len(peaks) == 0 {
		return bars
	}

	for x := range bars {
		lo := x * len(peaks) / width
		hi := (x + 1) * len(peaks) / width
		if hi <= lo {
			hi = lo + 1
		}
		if hi > len(peaks) {
			hi = len(peaks)
		}

		peak := 0.0
		for _, p := range peaks[lo:hi] {
			if p > peak {
				peak = p
			}
		}
		bars[x].Height = clampUnit(peak)
	}

	return bars
}

// SeekRatio maps a pointer's horizontal pixel position to a seek ratio in
// [0, 1]. This is the scrubber's reverse mapping and the only user-facing
// entry point that produces a ratio-based seek.
func SeekRatio(x, width int) float64 {
	if width <= 0 {
		return 0
	}
	return clampUnit(float64(x) / float64(width))
}

// RatioToSeconds converts a seek ratio to an absolute position in seconds.
func RatioToSeconds(ratio, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	return clampUnit(ratio) * duration
}

// Fraction returns progress/duration clamped to [0, 1], or 0 while the
// duration is unknown.
func Fraction(progress, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	return clampUnit(progress / duration)
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
