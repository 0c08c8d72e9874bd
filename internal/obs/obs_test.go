package obs

import "testing"

func TestActivityHookReceivesNotifications(t *testing.T) {
	var gotLevel, gotMsg string
	SetActivityHook(func(level, message string) {
		gotLevel = level
		gotMsg = message
	})
	defer SetActivityHook(nil)

	NotifyActivity("WARN", "rate limited session s1")

	if gotLevel != "WARN" || gotMsg != "rate limited session s1" {
		t.Errorf("hook got (%q, %q)", gotLevel, gotMsg)
	}
}

func TestSetLevelDefaultsToInfo(t *testing.T) {
	SetLevel("bogus")
	if Logger.GetLevel().String() != "info" {
		t.Errorf("expected default info level, got %s", Logger.GetLevel())
	}
}
