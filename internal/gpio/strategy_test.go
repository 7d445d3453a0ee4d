package gpio

import (
	"reflect"
	"testing"
)

func TestOpenDrainStrategy(t *testing.T) {
	p := NewFakePin(21)
	s := OpenDrain{}

	if err := s.Configure(p); err != nil {
		t.Fatal(err)
	}
	if !p.IsIdle() {
		t.Error("configured line should be idle (released)")
	}
	if err := s.Active(p); err != nil {
		t.Fatal(err)
	}
	if !p.PullingLow() {
		t.Error("active line should pull low")
	}
	if err := s.Idle(p); err != nil {
		t.Fatal(err)
	}
	if !p.IsIdle() {
		t.Error("line should be released after idle")
	}

	want := []string{"open-drain=1", "set=0", "set=1"}
	if !reflect.DeepEqual(p.Ops, want) {
		t.Errorf("ops: got %v, want %v", p.Ops, want)
	}
	if p.SourcedHigh {
		t.Error("open-drain strategy must never source a high level")
	}
}

func TestFloatingStrategy(t *testing.T) {
	p := NewFakePin(21)
	s := Floating{}

	s.Configure(p)
	if p.Mode != ModeInput {
		t.Errorf("configured mode: got %q, want input", p.Mode)
	}
	s.Active(p)
	if !p.PullingLow() {
		t.Error("active line should drive low")
	}
	s.Idle(p)
	if p.Mode != ModeInput {
		t.Errorf("idle mode: got %q, want input", p.Mode)
	}

	want := []string{"input", "output=0", "input"}
	if !reflect.DeepEqual(p.Ops, want) {
		t.Errorf("ops: got %v, want %v", p.Ops, want)
	}
	if p.SourcedHigh {
		t.Error("floating strategy must never source a high level")
	}
}

func TestSelectStrategy(t *testing.T) {
	capable := NewFakePin(1)
	incapable := NewFakePin(2)
	incapable.NoOpenDrain = true

	tests := []struct {
		name  string
		mode  DriveMode
		probe Pin
		want  string
	}{
		{"forced open drain", DriveOpenDrain, incapable, "open-drain"},
		{"forced floating", DriveFloating, capable, "floating"},
		{"auto capable", DriveAuto, capable, "open-drain"},
		{"auto incapable", DriveAuto, incapable, "floating"},
		{"auto no probe", DriveAuto, nil, "floating"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectStrategy(tt.mode, tt.probe)
			if got.Name() != tt.want {
				t.Errorf("got %s, want %s", got.Name(), tt.want)
			}
		})
	}

	if capable.Mode != ModeInput {
		t.Errorf("probe should leave the line floating, got %q", capable.Mode)
	}
}

func TestParseDriveMode(t *testing.T) {
	for _, s := range []string{"auto", "open-drain", "floating", ""} {
		if _, err := ParseDriveMode(s); err != nil {
			t.Errorf("ParseDriveMode(%q): unexpected error %v", s, err)
		}
	}
	if m, _ := ParseDriveMode(""); m != DriveAuto {
		t.Errorf("empty mode should default to auto, got %q", m)
	}
	if _, err := ParseDriveMode("push-pull"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
