package vision

// Depth estimation constants, calibrated for the Reachy Mini camera.
const (
	// When a face fills 20% of the frame width the person is about 1m away,
	// so distance = depthCalibrationConstant / faceWidth.
	depthCalibrationConstant = 0.2

	minDepth = 0.3
	maxDepth = 5.0
)

// EstimateDepth calculates approximate distance in meters from the face
// width as a fraction of frame width. It returns 0 for widths outside (0, 1].
//
// Accuracy is approximately ±30% at distances under 3 meters.
func EstimateDepth(faceWidth float64) float64 {
	if faceWidth <= 0 || faceWidth > 1 {
		return 0
	}
	return max(minDepth, min(depthCalibrationConstant/faceWidth, maxDepth))
}
