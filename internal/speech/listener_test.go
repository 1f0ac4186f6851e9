package speech

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/spf13/afero"

	"github.com/ayusman/mudra/internal/logging"
)

type fakeTranscriber struct {
	texts  []string
	err    error
	calls  int
	onCall func(n int)
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, buf *audio.IntBuffer) (string, error) {
	f.calls++
	if f.onCall != nil {
		f.onCall(f.calls)
	}
	if f.err != nil {
		return "", f.err
	}
	if len(f.texts) == 0 {
		return "", nil
	}
	text := f.texts[0]
	f.texts = f.texts[1:]
	return text, nil
}

func talkingMic(seed uint64) *fakeMic {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	return &fakeMic{frames: utterance(rng, 5, 6, 8), loop: true}
}

func TestListener_WaitForWakeWord(t *testing.T) {
	tr := &fakeTranscriber{texts: []string{"what's for dinner", "hey computer open browser"}}
	stamp := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewListener(talkingMic(1), tr, "computer",
		WithLogger(logging.Discard()),
		WithClock(func() time.Time { return stamp }),
	)

	ev, err := l.WaitForWakeWord(context.Background())
	if err != nil {
		t.Fatalf("WaitForWakeWord() failed: %v", err)
	}
	if ev.Keyword != "computer" || ev.Trailing != "open browser" || !ev.Timestamp.Equal(stamp) {
		t.Errorf("unexpected wake event %+v", ev)
	}
	if tr.calls != 2 {
		t.Errorf("expected two utterances transcribed, got %d", tr.calls)
	}
}

func TestListener_WaitForWakeWord_SurvivesTranscribeErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr := &fakeTranscriber{err: errors.New("model busy")}
	tr.onCall = func(n int) {
		if n == 3 {
			cancel()
		}
	}
	l := NewListener(talkingMic(2), tr, "computer", WithLogger(logging.Discard()))

	if _, err := l.WaitForWakeWord(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if tr.calls != 3 {
		t.Errorf("expected errors to be skipped until cancel, got %d calls", tr.calls)
	}
}

func TestListener_ListenForPhrase(t *testing.T) {
	fs := afero.NewMemMapFs()
	tr := &fakeTranscriber{texts: []string{"volume up"}}
	l := NewListener(talkingMic(3), tr, "computer",
		WithLogger(logging.Discard()),
		WithRecorder(NewRecorder(fs, "/rec")),
		WithPhraseLimit(5*time.Second),
	)

	p, err := l.ListenForPhrase(context.Background(), 5*time.Second)
	if err != nil {
		t.Fatalf("ListenForPhrase() failed: %v", err)
	}
	if p == nil || p.Text != "volume up" {
		t.Fatalf("expected phrase volume up, got %+v", p)
	}

	files, err := afero.ReadDir(fs, "/rec")
	if err != nil || len(files) != 1 {
		t.Errorf("expected one recording, got %d (%v)", len(files), err)
	}
}

func TestListener_ListenForPhrase_Silence(t *testing.T) {
	rng := rand.New(rand.NewPCG(4, 5))
	mic := &fakeMic{frames: utterance(rng, 10, 0, 0), loop: true}
	tr := &fakeTranscriber{}
	l := NewListener(mic, tr, "computer", WithLogger(logging.Discard()))

	p, err := l.ListenForPhrase(context.Background(), 300*time.Millisecond)
	if err != nil || p != nil {
		t.Fatalf("expected (nil, nil) for silence, got (%+v, %v)", p, err)
	}
	if tr.calls != 0 {
		t.Error("expected nothing transcribed")
	}

	if p, _ := l.ListenForPhrase(context.Background(), 0); p != nil {
		t.Error("expected nil for an expired window")
	}
}

func TestListener_ListenForPhrase_Errors(t *testing.T) {
	tr := &fakeTranscriber{err: errors.New("decoder crashed")}
	l := NewListener(talkingMic(6), tr, "computer", WithLogger(logging.Discard()))
	if _, err := l.ListenForPhrase(context.Background(), 5*time.Second); err == nil {
		t.Error("expected the transcription error")
	}

	empty := NewListener(talkingMic(7), &fakeTranscriber{texts: []string{""}}, "computer", WithLogger(logging.Discard()))
	if p, err := empty.ListenForPhrase(context.Background(), 5*time.Second); p != nil || err != nil {
		t.Errorf("expected (nil, nil) for an empty transcript, got (%+v, %v)", p, err)
	}
}

func TestScriptedSource(t *testing.T) {
	s := NewScriptedSource()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := s.WaitForWakeWord(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected the wait to block until the deadline, got %v", err)
	}

	s.PushWake(WakeEvent{Keyword: "computer", Trailing: "mute"})
	ev, err := s.WaitForWakeWord(context.Background())
	if err != nil || ev.Trailing != "mute" {
		t.Errorf("unexpected wake %+v (%v)", ev, err)
	}

	s.PushPhrase("")
	s.PushPhrase("lock")
	if p, _ := s.ListenForPhrase(context.Background(), time.Second); p != nil {
		t.Errorf("expected queued silence, got %+v", p)
	}
	if p, _ := s.ListenForPhrase(context.Background(), time.Second); p == nil || p.Text != "lock" {
		t.Errorf("expected lock, got %+v", p)
	}
	if p, _ := s.ListenForPhrase(context.Background(), 10*time.Millisecond); p != nil {
		t.Errorf("expected nil once the queue is empty, got %+v", p)
	}
	if got := s.Listens(); len(got) != 3 || got[0] != time.Second {
		t.Errorf("unexpected listen timeouts %v", got)
	}

	s.Close()
	if !s.Closed() {
		t.Error("expected Closed() after Close")
	}
}
