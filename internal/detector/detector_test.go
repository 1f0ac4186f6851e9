package detector

import (
	"errors"
	"math"
	"strconv"
	"testing"
)

const epsilon = 1e-9

func TestHandLandmarks_Normalize(t *testing.T) {
	t.Run("wrist at origin and unit scale", func(t *testing.T) {
		hand := HandLandmarks{Handedness: "Right", Score: 0.9}
		hand.Points[Wrist] = Point3D{X: 10.0, Y: 20.0, Z: 5.0}
		hand.Points[MiddleMCP] = Point3D{X: 13.0, Y: 24.0, Z: 5.0} // distance 5
		for i := 1; i < NumLandmarks; i++ {
			if i != MiddleMCP {
				hand.Points[i] = Point3D{X: 10.0 + float64(i), Y: 20.0 + float64(i), Z: 5.0}
			}
		}

		normalized := hand.Normalize()

		w := normalized.Points[Wrist]
		if math.Abs(w.X) > epsilon || math.Abs(w.Y) > epsilon || math.Abs(w.Z) > epsilon {
			t.Errorf("expected wrist at origin, got %+v", w)
		}
		if d := Distance(Point3D{}, normalized.Points[MiddleMCP]); math.Abs(d-1.0) > epsilon {
			t.Errorf("expected wrist to middle MCP distance 1.0, got %f", d)
		}
		if normalized.Handedness != "Right" || normalized.Score != 0.9 {
			t.Errorf("expected handedness and score preserved, got %s %f", normalized.Handedness, normalized.Score)
		}
	})

	t.Run("nil hand returns nil", func(t *testing.T) {
		var hand *HandLandmarks
		if hand.Normalize() != nil {
			t.Error("expected nil result for nil input")
		}
	})

	t.Run("zero scale returns translated only", func(t *testing.T) {
		hand := HandLandmarks{}
		hand.Points[Wrist] = Point3D{X: 10.0, Y: 20.0, Z: 5.0}
		hand.Points[MiddleMCP] = Point3D{X: 10.0, Y: 20.0, Z: 5.0}

		normalized := hand.Normalize()
		if math.Abs(normalized.Points[Wrist].X) > epsilon {
			t.Errorf("expected wrist X to be 0, got %f", normalized.Points[Wrist].X)
		}
	})
}

func TestPrimary(t *testing.T) {
	if Primary(nil) != nil {
		t.Error("expected nil for no hands")
	}

	low := OpenPalmLandmarks()
	low.Score = 0.6
	high := FistLandmarks()
	high.Score = 0.9

	got := Primary([]HandLandmarks{low, high})
	if got == nil || got.Score != 0.9 {
		t.Fatalf("expected the higher scoring hand, got %+v", got)
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty hands by default", func(t *testing.T) {
		mock := NewMockDetector()
		hands, err := mock.Detect(nil)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if hands != nil {
			t.Errorf("expected nil hands, got %v", hands)
		}
	})

	t.Run("queued results come before configured hands", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands([]HandLandmarks{OpenPalmLandmarks()})
		mock.Enqueue([]HandLandmarks{FistLandmarks()}, nil)

		first, _ := mock.Detect(nil)
		second, _ := mock.Detect(nil)
		third, _ := mock.Detect(nil)

		if len(first) != 1 || first[0].Points[IndexTip] != FistLandmarks().Points[IndexTip] {
			t.Error("expected first call to return the queued fist")
		}
		if second != nil {
			t.Error("expected second call to return the queued empty frame")
		}
		if len(third) != 1 {
			t.Error("expected third call to fall back to configured hands")
		}
		if mock.Calls() != 3 {
			t.Errorf("expected 3 calls, got %d", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()
		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		hands, err := mock.Detect(nil)
		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if hands != nil {
			t.Errorf("expected nil hands when error is set, got %v", hands)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
	})
}

func TestFixtures(t *testing.T) {
	t.Run("thumbs up thumb points up", func(t *testing.T) {
		h := ThumbsUpLandmarks()
		if h.Points[ThumbTip].Y >= h.Points[ThumbIP].Y || h.Points[ThumbIP].Y >= h.Points[ThumbMCP].Y {
			t.Error("thumb tip should be above IP and MCP")
		}
	})

	t.Run("open palm fingers extended", func(t *testing.T) {
		h := OpenPalmLandmarks()
		for _, mcp := range []int{IndexMCP, MiddleMCP, RingMCP, PinkyMCP} {
			if ext := h.Points[mcp].Y - h.Points[mcp+3].Y; ext < 0.2 {
				t.Errorf("finger at %d not extended (extension %f)", mcp, ext)
			}
		}
	})

	t.Run("fist fingers curled", func(t *testing.T) {
		h := FistLandmarks()
		for _, mcp := range []int{IndexMCP, MiddleMCP, RingMCP, PinkyMCP} {
			tip := Distance2D(h.Points[Wrist], h.Points[mcp+3])
			pip := Distance2D(h.Points[Wrist], h.Points[mcp+1])
			if tip >= pip {
				t.Errorf("finger at %d: tip %f should be closer to wrist than pip %f", mcp, tip, pip)
			}
		}
	})

	t.Run("pinch tips touch", func(t *testing.T) {
		h := PinchLandmarks()
		if d := Distance2D(h.Points[ThumbTip], h.Points[IndexTip]); d > 0.03 {
			t.Errorf("expected thumb and index tips within 0.03, got %f", d)
		}
	})

	t.Run("translate keeps shape", func(t *testing.T) {
		h := PointLandmarks()
		moved := Translate(h, 0.1, -0.05)
		if math.Abs(moved.Points[IndexTip].X-h.Points[IndexTip].X-0.1) > epsilon {
			t.Error("expected index tip moved by dx")
		}
		if math.Abs(moved.Scale()-h.Scale()) > epsilon {
			t.Error("expected scale unchanged by translation")
		}
	})
}

func TestParseServiceResponse(t *testing.T) {
	t.Run("full hand", func(t *testing.T) {
		line := `{"hands":[{"handedness":"Left","score":0.8,"points":[` + points(21) + `]}]}`
		hands, err := parseServiceResponse([]byte(line))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 1 {
			t.Fatalf("expected 1 hand, got %d", len(hands))
		}
		if hands[0].Handedness != "Left" || hands[0].Points[20].X != 20 {
			t.Errorf("unexpected hand %+v", hands[0])
		}
	})

	t.Run("short hand dropped", func(t *testing.T) {
		line := `{"hands":[{"handedness":"Left","score":0.8,"points":[` + points(5) + `]}]}`
		hands, err := parseServiceResponse([]byte(line))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 0 {
			t.Errorf("expected truncated hand to be dropped, got %d", len(hands))
		}
	})

	t.Run("service error", func(t *testing.T) {
		if _, err := parseServiceResponse([]byte(`{"error":"decode failed"}`)); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := parseServiceResponse([]byte("not json")); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestNewMediaPipeDetector_MissingScript(t *testing.T) {
	_, err := NewMediaPipeDetector(Config{ScriptPath: "/nonexistent/hand_landmarks.py"})
	if !errors.Is(err, ErrServiceNotFound) {
		t.Fatalf("expected ErrServiceNotFound, got %v", err)
	}
}

func points(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			s += ","
		}
		s += `{"x":` + strconv.Itoa(i) + `,"y":0,"z":0}`
	}
	return s
}
