package core

import "sync"

const AVG_COUNT uint8 = 30

type MetricsState struct {
	FrameAVGCounter    uint8
	MStimes            [AVG_COUNT]float64
	MSavg              float64
	Frames             int32
	AccumulatedFrameMS float64
	FPS                float64
}

var metricsMu sync.Mutex
var metricsState = &MetricsState{}

// MetricsUpdate records the duration of one frame, in seconds.
func MetricsUpdate(frameElapsedTime float64) {
	metricsMu.Lock()
	defer metricsMu.Unlock()

	frameMS := frameElapsedTime * 1000.0
	metricsState.MStimes[metricsState.FrameAVGCounter] = frameMS
	if metricsState.FrameAVGCounter == AVG_COUNT-1 {
		metricsState.MSavg = 0
		for i := uint8(0); i < AVG_COUNT; i++ {
			metricsState.MSavg += metricsState.MStimes[i]
		}
		metricsState.MSavg /= float64(AVG_COUNT)
	}
	metricsState.FrameAVGCounter++
	metricsState.FrameAVGCounter %= AVG_COUNT

	// Calculate Frames per second.
	metricsState.AccumulatedFrameMS += frameMS
	if metricsState.AccumulatedFrameMS > 1000 {
		metricsState.FPS = float64(metricsState.Frames)
		metricsState.AccumulatedFrameMS -= 1000
		metricsState.Frames = 0
	}

	// Count all Frames.
	metricsState.Frames++
}

// MetricsReset clears all accumulated samples.
func MetricsReset() {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	metricsState = &MetricsState{}
}

// MetricsFrame returns the frames per second and the averaged frame time in milliseconds.
func MetricsFrame() (float64, float64) {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	return metricsState.FPS, metricsState.MSavg
}
