package log

import "testing"

func TestNewDisabledReturnsNop(t *testing.T) {
	l, err := New(Config{Disable: true}, nil)
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestNewRejectsInvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "not-a-level"}, nil)
	if err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestNewAppliesInitialFields(t *testing.T) {
	l, err := New(Config{OutputPaths: []string{"stdout"}}, map[string]interface{}{"component": "test"})
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestPackageLevelLoggingDoesNotPanic(t *testing.T) {
	Info("hello")
	Infof("hello %s", "world")
	Warn("careful")
	Debug("quiet")
	With("key", "value").Info("tagged")
}

func TestNewNopIsUsable(t *testing.T) {
	NewNop().Info("should not panic or print")
}
