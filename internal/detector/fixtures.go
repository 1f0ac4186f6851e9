package detector

// Pose fixtures for tests and for the mock landmark source. All are right hands
// facing the camera with the wrist at (0.5, 0.8).

// OpenPalmLandmarks returns a hand with all five fingers extended.
func OpenPalmLandmarks() HandLandmarks {
	h := HandLandmarks{Handedness: "Right", Score: 0.95}

	h.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	h.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	h.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	h.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	h.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	h.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	h.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	h.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	h.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	h.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	h.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	h.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	h.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	h.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	h.Points[RingPIP] = Point3D{X: 0.43, Y: 0.55, Z: 0.0}
	h.Points[RingDIP] = Point3D{X: 0.42, Y: 0.45, Z: 0.0}
	h.Points[RingTip] = Point3D{X: 0.42, Y: 0.35, Z: 0.0}

	h.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.0}
	h.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.0}
	h.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50, Z: 0.0}
	h.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.42, Z: 0.0}

	return h
}

// ThumbsUpLandmarks returns a closed hand with the thumb pointing up.
func ThumbsUpLandmarks() HandLandmarks {
	h := HandLandmarks{Handedness: "Right", Score: 0.95}

	h.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	h.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.0}
	h.Points[ThumbMCP] = Point3D{X: 0.58, Y: 0.65, Z: 0.0}
	h.Points[ThumbIP] = Point3D{X: 0.58, Y: 0.50, Z: 0.0}
	h.Points[ThumbTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	h.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.70, Z: -0.02}
	h.Points[IndexPIP] = Point3D{X: 0.55, Y: 0.68, Z: -0.05}
	h.Points[IndexDIP] = Point3D{X: 0.52, Y: 0.70, Z: -0.04}
	h.Points[IndexTip] = Point3D{X: 0.50, Y: 0.72, Z: -0.02}

	h.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.68, Z: -0.02}
	h.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.66, Z: -0.05}
	h.Points[MiddleDIP] = Point3D{X: 0.47, Y: 0.68, Z: -0.04}
	h.Points[MiddleTip] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}

	h.Points[RingMCP] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}
	h.Points[RingPIP] = Point3D{X: 0.45, Y: 0.68, Z: -0.05}
	h.Points[RingDIP] = Point3D{X: 0.42, Y: 0.70, Z: -0.04}
	h.Points[RingTip] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}

	h.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}
	h.Points[PinkyPIP] = Point3D{X: 0.40, Y: 0.70, Z: -0.05}
	h.Points[PinkyDIP] = Point3D{X: 0.37, Y: 0.72, Z: -0.04}
	h.Points[PinkyTip] = Point3D{X: 0.35, Y: 0.74, Z: -0.02}

	return h
}

// FistLandmarks returns a closed hand with the thumb folded over the fingers.
func FistLandmarks() HandLandmarks {
	h := OpenPalmLandmarks()
	curl(&h, IndexMCP, MiddleMCP, RingMCP, PinkyMCP)
	tuckThumb(&h)
	return h
}

// PointLandmarks returns a hand with only the index finger extended.
func PointLandmarks() HandLandmarks {
	h := OpenPalmLandmarks()
	curl(&h, MiddleMCP, RingMCP, PinkyMCP)
	tuckThumb(&h)
	return h
}

// TwoFingersLandmarks returns a hand with index and middle extended.
func TwoFingersLandmarks() HandLandmarks {
	h := OpenPalmLandmarks()
	curl(&h, RingMCP, PinkyMCP)
	tuckThumb(&h)
	return h
}

// ThreeFingersLandmarks returns a hand with index, middle and ring extended.
func ThreeFingersLandmarks() HandLandmarks {
	h := OpenPalmLandmarks()
	curl(&h, PinkyMCP)
	tuckThumb(&h)
	return h
}

// FourFingersLandmarks returns an open hand with the thumb folded in.
func FourFingersLandmarks() HandLandmarks {
	h := OpenPalmLandmarks()
	tuckThumb(&h)
	return h
}

// PinchLandmarks returns a hand whose thumb and index tips touch.
func PinchLandmarks() HandLandmarks {
	h := OpenPalmLandmarks()
	curl(&h, MiddleMCP, RingMCP, PinkyMCP)

	h.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.0}
	h.Points[ThumbMCP] = Point3D{X: 0.60, Y: 0.68, Z: 0.0}
	h.Points[ThumbIP] = Point3D{X: 0.61, Y: 0.58, Z: 0.0}
	h.Points[ThumbTip] = Point3D{X: 0.60, Y: 0.50, Z: 0.0}

	h.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	h.Points[IndexPIP] = Point3D{X: 0.58, Y: 0.58, Z: 0.0}
	h.Points[IndexDIP] = Point3D{X: 0.60, Y: 0.53, Z: 0.0}
	h.Points[IndexTip] = Point3D{X: 0.61, Y: 0.51, Z: 0.0}

	return h
}

// Translate returns a copy of h moved by (dx, dy).
func Translate(h HandLandmarks, dx, dy float64) HandLandmarks {
	for i := range h.Points {
		h.Points[i].X += dx
		h.Points[i].Y += dy
	}
	return h
}

// curl folds each finger starting at the given MCP index back toward the palm.
func curl(h *HandLandmarks, mcps ...int) {
	for _, mcp := range mcps {
		base := h.Points[mcp]
		h.Points[mcp+1] = Point3D{X: base.X, Y: base.Y - 0.04, Z: base.Z - 0.03}
		h.Points[mcp+2] = Point3D{X: base.X - 0.01, Y: base.Y, Z: base.Z - 0.03}
		h.Points[mcp+3] = Point3D{X: base.X - 0.02, Y: base.Y + 0.04, Z: base.Z - 0.02}
	}
}

func tuckThumb(h *HandLandmarks) {
	h.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.0}
	h.Points[ThumbMCP] = Point3D{X: 0.58, Y: 0.72, Z: -0.01}
	h.Points[ThumbIP] = Point3D{X: 0.57, Y: 0.68, Z: -0.02}
	h.Points[ThumbTip] = Point3D{X: 0.54, Y: 0.66, Z: -0.02}
}
