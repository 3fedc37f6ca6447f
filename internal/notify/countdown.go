package notify

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Level is the urgency of a countdown step.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelUrgent  Level = "urgent"
	LevelEnd     Level = "end"
)

// Step is one timed send, At after the countdown starts.
type Step struct {
	At    time.Duration
	Level Level
	Note  Notification
}

// StartNotice is sent immediately when a countdown starts.
func StartNotice(d time.Duration) Notification {
	length := fmt.Sprintf("%d-second", int(d/time.Second))
	if d%time.Minute == 0 {
		length = fmt.Sprintf("%d-minute", int(d/time.Minute))
	}
	return Notification{Kind: KindQuizStart, Text: length + " quiz has begun! Good luck!"}
}

// StopNotice is sent to a student whose countdown was stopped.
var StopNotice = Notification{Kind: KindNotification, Text: "Your quiz timer has been stopped."}

// Countdown is the schedule for an exam of duration d. For the standard
// 300s exam the offsets are 60, 120, 180, 240, 270, 285 and 300 seconds.
func Countdown(d time.Duration) []Step {
	steps := []Step{
		{At: time.Minute, Level: LevelInfo, Note: Notification{Kind: KindNotification,
			Text: fmt.Sprintf("%s remaining! Keep going!", span(d-time.Minute))}},
		{At: 2 * time.Minute, Level: LevelInfo, Note: Notification{Kind: KindNotification,
			Text: fmt.Sprintf("%s remaining! You're doing great!", span(d-2*time.Minute))}},
		{At: 3 * time.Minute, Level: LevelWarning, Note: Notification{Kind: KindTimeWarning,
			Text: fmt.Sprintf("⏰ %s remaining! Speed up!", span(d-3*time.Minute))}},
		{At: 4 * time.Minute, Level: LevelWarning, Note: Notification{Kind: KindTimeWarning,
			Text: fmt.Sprintf("⚠️ %s LEFT! Finish your answers!", strings.ToUpper(span(d-4*time.Minute)))}},
		{At: d - 30*time.Second, Level: LevelUrgent, Note: Notification{Kind: KindTimeWarning,
			Text: "🚨 30 SECONDS LEFT! SUBMIT NOW!"}},
		{At: d - 15*time.Second, Level: LevelUrgent, Note: Notification{Kind: KindTimeWarning,
			Text: "🚨 15 SECONDS! SUBMIT IMMEDIATELY!"}},
	}

	out := make([]Step, 0, len(steps)+1)
	seen := make(map[time.Duration]bool)
	for _, s := range steps {
		// Short exams drop the minute marks that fall at or past the urgent ones.
		if s.At <= 0 || s.At >= d || seen[s.At] {
			continue
		}
		if s.Level != LevelUrgent && s.At >= d-30*time.Second {
			continue
		}
		seen[s.At] = true
		out = append(out, s)
	}
	out = append(out, Step{At: d, Level: LevelEnd, Note: Notification{Kind: KindQuizEnd,
		Text: "⏰ TIME'S UP! Quiz has ended."}})
	sort.SliceStable(out, func(i, j int) bool { return out[i].At < out[j].At })
	return out
}

// span renders a duration as "4 minutes", "1 minute" or "45 seconds".
func span(d time.Duration) string {
	if d%time.Minute == 0 {
		if n := int(d / time.Minute); n != 1 {
			return fmt.Sprintf("%d minutes", n)
		}
		return "1 minute"
	}
	if n := int(d / time.Second); n != 1 {
		return fmt.Sprintf("%d seconds", n)
	}
	return "1 second"
}
