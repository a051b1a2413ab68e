package main

import (
	"fmt"
	"testing"
)

func frameAt(ts int64) Frame {
	return Frame{Timestamp: ts}
}

func TestRecorderRingEvictsOldest(t *testing.T) {
	r := NewRecorder(5)
	for i := 0; i < 8; i++ {
		r.PushFrame(frameAt(int64(i)))
	}
	if r.FrameCount() != 5 {
		t.Fatalf("expected 5 retained frames, got %d", r.FrameCount())
	}
	frames := r.Frames()
	if frames[0].Timestamp != 3 || frames[4].Timestamp != 7 {
		t.Errorf("expected frames 3..7, got %d..%d", frames[0].Timestamp, frames[4].Timestamp)
	}
}

func TestRecorderStampsEventsWithAbsoluteIndex(t *testing.T) {
	r := NewRecorder(3)
	for i := 0; i < 10; i++ {
		r.PushFrame(frameAt(int64(i)))
	}
	r.Queue(&HighlightEvent{ID: "e1", Type: EventKill})
	r.PushFrame(frameAt(10))

	events := r.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 stamped event, got %d", len(events))
	}
	// 11 frames pushed, the event rides the last one
	if events[0].FrameIndex != 10 {
		t.Errorf("expected frame index 10, got %d", events[0].FrameIndex)
	}
}

func TestRecorderPendingCap(t *testing.T) {
	r := NewRecorder(10)
	for i := 0; i < pendingHighlightCap+5; i++ {
		r.Queue(&HighlightEvent{ID: fmt.Sprintf("e%d", i), Type: EventPowerup})
	}
	r.PushFrame(frameAt(0))
	if got := len(r.Events()); got != pendingHighlightCap {
		t.Errorf("expected pending capped at %d, got %d", pendingHighlightCap, got)
	}
}

func TestRecorderEvictionPrefersDroppingNonKills(t *testing.T) {
	r := NewRecorder(64)
	for i := 0; i < roundHighlightCap; i++ {
		r.Queue(&HighlightEvent{ID: fmt.Sprintf("p%d", i), Type: EventPowerup})
		r.PushFrame(frameAt(int64(i)))
	}
	for i := 0; i < 5; i++ {
		r.Queue(&HighlightEvent{ID: fmt.Sprintf("k%d", i), Type: EventKill})
		r.PushFrame(frameAt(int64(100 + i)))
	}

	events := r.Events()
	if len(events) != roundHighlightCap {
		t.Fatalf("expected %d events after eviction, got %d", roundHighlightCap, len(events))
	}
	kills := 0
	for _, ev := range events {
		if ev.Type == EventKill {
			kills++
		}
	}
	if kills != 5 {
		t.Errorf("all 5 kills should survive eviction, got %d", kills)
	}
}

func TestSelectKeyEventsPrefersKills(t *testing.T) {
	events := []*HighlightEvent{
		{ID: "p1", Type: EventPowerup},
		{ID: "k1", Type: EventKill},
		{ID: "p2", Type: EventGoldenFood},
		{ID: "k2", Type: EventKill},
		{ID: "p3", Type: EventPowerup},
		{ID: "k3", Type: EventKill},
		{ID: "k4", Type: EventKill},
	}
	selected := selectKeyEvents(events)
	if len(selected) != highlightPackageMax {
		t.Fatalf("expected %d selected, got %d", highlightPackageMax, len(selected))
	}
	kills := 0
	for _, ev := range selected {
		if ev.Type == EventKill {
			kills++
		}
	}
	if kills != 4 {
		t.Errorf("all 4 kills should be selected, got %d", kills)
	}
}

func TestBuildPackageClipsAndSummary(t *testing.T) {
	r := NewRecorder(TickRate * 10)
	for i := 0; i < TickRate*5; i++ {
		r.PushFrame(frameAt(int64(i)))
	}
	r.Queue(&HighlightEvent{
		ID: "k1", Type: EventKill, Timestamp: 123,
		KillerID: "a", KillerName: "Alice", KillerColor: "#ff4d4f",
		VictimID: "b", VictimName: "Bob", Cause: CauseCollision,
	})
	r.PushFrame(frameAt(int64(TickRate * 5)))

	stats := []RoundStatSnapshot{
		{PlayerID: "a", Name: "Alice", Kills: 2, Golden: 1, Score: 300, SurvivalSeconds: 40},
		{PlayerID: "b", Name: "Bob", Kills: 0, Golden: 3, Score: 150, SurvivalSeconds: 25},
	}
	pkg := r.BuildPackage(stats, "a", "Alice", 2, "a")

	if len(pkg.Clips) != 1 {
		t.Fatalf("expected 1 clip, got %d", len(pkg.Clips))
	}
	clip := pkg.Clips[0]
	if clip.Title == "" || clip.Subtitle == "" {
		t.Error("clip should carry a generated title and subtitle")
	}
	if len(clip.Frames) == 0 {
		t.Error("clip should carry a frame window")
	}
	if clip.EndFrame < clip.StartFrame {
		t.Error("clip window bounds inverted")
	}
	found := false
	for _, tag := range clip.Tags {
		if tag == "first-kill" {
			found = true
		}
	}
	if !found {
		t.Error("killer matching firstKillBy should be tagged first-kill")
	}

	if pkg.Summary.TopKiller == nil || pkg.Summary.TopKiller.PlayerID != "a" {
		t.Error("Alice should be top killer")
	}
	if pkg.Summary.GoldenCollector == nil || pkg.Summary.GoldenCollector.PlayerID != "b" {
		t.Error("Bob should be top golden collector")
	}
	if pkg.Summary.Survivor == nil || pkg.Summary.Survivor.PlayerID != "a" {
		t.Error("Alice should be longest survivor")
	}
	if len(pkg.KeyEvents) != 1 {
		t.Errorf("expected 1 key event, got %d", len(pkg.KeyEvents))
	}
}

func TestMarkersAreRelativeToRetainedHistory(t *testing.T) {
	r := NewRecorder(4)
	r.Queue(&HighlightEvent{ID: "old", Type: EventKill})
	r.PushFrame(frameAt(0)) // stamped at absolute index 0
	for i := 1; i < 10; i++ {
		r.PushFrame(frameAt(int64(i)))
	}
	r.Queue(&HighlightEvent{ID: "new", Type: EventGoldenFood, PlayerName: "A"})
	r.PushFrame(frameAt(10)) // stamped at absolute index 10

	markers := r.Markers()
	if len(markers) != 2 {
		t.Fatalf("expected 2 markers, got %d", len(markers))
	}
	// The evicted event clamps to the oldest retained frame
	if markers[0].FrameIndex != 0 {
		t.Errorf("evicted event should clamp to relative 0, got %d", markers[0].FrameIndex)
	}
	// 11 frames total, 4 retained: absolute 10 -> relative 3
	if markers[1].FrameIndex != 3 {
		t.Errorf("expected relative index 3, got %d", markers[1].FrameIndex)
	}
}

func TestDescribeHighlightKill(t *testing.T) {
	title, subtitle := describeHighlight(&HighlightEvent{
		Type: EventKill, KillerName: "Alice", VictimName: "Bob", Cause: CauseCollision,
	})
	if title != "Alice's finishing blow" {
		t.Errorf("unexpected title %q", title)
	}
	if subtitle != "Alice ▶ Bob (collision win)" {
		t.Errorf("unexpected subtitle %q", subtitle)
	}

	title, subtitle = describeHighlight(&HighlightEvent{
		Type: EventKill, VictimName: "Bob", Cause: CauseWall,
	})
	if title != "Bob eliminated" || subtitle != "Crashed into the wall" {
		t.Errorf("unexpected wall-death description %q / %q", title, subtitle)
	}
}

func TestDescribeHighlightRoundEnd(t *testing.T) {
	title, subtitle := describeHighlight(&HighlightEvent{
		Type: EventRoundEnd, WinnerName: "Alice",
	})
	if title != "Alice wins" || subtitle != "Last worm standing" {
		t.Errorf("unexpected victory description %q / %q", title, subtitle)
	}

	title, subtitle = describeHighlight(&HighlightEvent{Type: EventRoundEnd})
	if title != "Round over" || subtitle != "No survivors" {
		t.Errorf("unexpected draw description %q / %q", title, subtitle)
	}
}

func TestBuildFeedEntryKill(t *testing.T) {
	entry := buildFeedEntry(&HighlightEvent{
		ID: "e1", Type: EventKill, Timestamp: 5,
		KillerID: "a", KillerName: "Alice", KillerColor: "#40a9ff",
		VictimID: "b", VictimName: "Bob",
	})
	if entry == nil {
		t.Fatal("kill should produce a feed entry")
	}
	if entry.Message != "Alice ▶ Bob" {
		t.Errorf("unexpected message %q", entry.Message)
	}
	if entry.Detail != "Collision win" {
		t.Errorf("unexpected detail %q", entry.Detail)
	}
	if entry.PrimaryID != "a" || entry.SecondaryID != "b" {
		t.Error("feed entry should reference killer and victim")
	}
}

func TestRecorderResetDropsEverything(t *testing.T) {
	r := NewRecorder(8)
	r.Queue(&HighlightEvent{ID: "e1", Type: EventKill})
	r.PushFrame(frameAt(1))
	r.Reset()

	if r.FrameCount() != 0 {
		t.Error("reset should drop frames")
	}
	if len(r.Events()) != 0 {
		t.Error("reset should drop events")
	}
	if len(r.Markers()) != 0 {
		t.Error("reset should drop markers")
	}
}
