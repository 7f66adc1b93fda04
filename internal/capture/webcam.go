package capture

// Webcam captures from a local camera by device index. Without the gocv build
// tag Open always fails.
type Webcam struct {
	Device int
}
