package settings

import (
	"testing"

	"github.com/wkmp/ap/pkg/timing"
	"github.com/wkmp/ap/pkg/types"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSettingRoundTrip(t *testing.T) {
	s := openTestStore(t)
	if _, ok, err := s.GetSetting("maximum_decode_streams"); err != nil || ok {
		t.Fatalf("expected absent key, got ok=%v err=%v", ok, err)
	}
	if err := s.SetSetting("maximum_decode_streams", "16"); err != nil {
		t.Fatal(err)
	}
	value, ok, err := s.GetSetting("maximum_decode_streams")
	if err != nil || !ok || value != "16" {
		t.Fatalf("GetSetting = %q, %v, %v; want 16, true, nil", value, ok, err)
	}
	if err := s.SetSetting("maximum_decode_streams", "20"); err != nil {
		t.Fatal(err)
	}
	value, _, _ = s.GetSetting("maximum_decode_streams")
	if value != "20" {
		t.Fatalf("overwrite failed, got %q", value)
	}
}

func TestQueueRoundTrip(t *testing.T) {
	s := openTestStore(t)
	fadeIn := timing.Tick(1000)
	passages := []Passage{
		{
			QueueEntryID: "a", FilePath: "/music/a.mp3",
			StartTime: 0, EndTime: 1000, FadeInPoint: &fadeIn,
			FadeInCurve: types.Linear, FadeOutCurve: types.Cosine,
		},
		{
			QueueEntryID: "b", FilePath: "/music/b.flac",
			StartTime: 0, EndTime: 2000,
			FadeInCurve: types.SCurve, FadeOutCurve: types.Exponential,
		},
	}
	if err := s.SaveQueue(passages); err != nil {
		t.Fatal(err)
	}
	got, err := s.LoadQueue()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("LoadQueue returned %d passages, want 2", len(got))
	}
	if got[0].QueueEntryID != "a" || got[0].FadeInPoint == nil || *got[0].FadeInPoint != 1000 {
		t.Errorf("passage 0 = %+v", got[0])
	}
	if got[1].FadeInPoint != nil {
		t.Errorf("passage 1 FadeInPoint should be nil, got %v", got[1].FadeInPoint)
	}
}

func TestPlaybackStateRoundTrip(t *testing.T) {
	s := openTestStore(t)
	if _, _, ok, err := s.LoadPlaybackState(); err != nil || ok {
		t.Fatalf("expected no playback state, got ok=%v err=%v", ok, err)
	}
	if err := s.SavePlaybackState("qid-1", timing.Tick(44100)); err != nil {
		t.Fatal(err)
	}
	qid, ticks, ok, err := s.LoadPlaybackState()
	if err != nil || !ok || qid != "qid-1" || ticks != 44100 {
		t.Fatalf("LoadPlaybackState = %q, %d, %v, %v", qid, ticks, ok, err)
	}
	if err := s.SavePlaybackState("qid-2", timing.Tick(99)); err != nil {
		t.Fatal(err)
	}
	qid, ticks, _, _ = s.LoadPlaybackState()
	if qid != "qid-2" || ticks != 99 {
		t.Fatalf("overwrite failed: %q %d", qid, ticks)
	}
}
