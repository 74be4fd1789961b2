package config

import "testing"

// helper to build a one-group config quickly
func gantry(policy string, axes ...AxisConfig) *Config {
	return &Config{
		Gantry: GantryConfig{
			Policy: policy,
			Groups: []GroupConfig{
				{Name: "all", Axes: axes},
			},
		},
	}
}

func axis(name, endpoint string) AxisConfig {
	return AxisConfig{Name: name, Endpoint: endpoint}
}

// ---- tests ----

func TestValidate_Minimal(t *testing.T) {
	cfg := gantry("", axis("x", "10.0.0.1"))

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_PolicyCaseInsensitive(t *testing.T) {
	cfg := gantry("Parallel", axis("x", "10.0.0.1"))

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_UnknownPolicy(t *testing.T) {
	cfg := gantry("round-robin", axis("x", "10.0.0.1"))

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected policy error, got nil")
	}
}

func TestValidate_NoGroups(t *testing.T) {
	if err := Validate(&Config{}); err == nil {
		t.Fatalf("expected error for empty gantry, got nil")
	}
}

func TestValidate_DuplicateAxisAcrossGroups(t *testing.T) {
	cfg := &Config{
		Gantry: GantryConfig{
			Groups: []GroupConfig{
				{Name: "vertical", Axes: []AxisConfig{axis("z", "10.0.0.1")}},
				{Name: "horizontal", Axes: []AxisConfig{axis("z", "10.0.0.2")}},
			},
		},
	}

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected duplicate name error, got nil")
	}
}

func TestValidate_DuplicateEndpointViaDefaultPort(t *testing.T) {
	cfg := gantry("", axis("x", "10.0.0.1"), axis("y", "10.0.0.1:49700"))

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected duplicate endpoint error, got nil")
	}
}

func TestValidate_SameHostDifferentPortAllowed(t *testing.T) {
	cfg := gantry("", axis("x", "127.0.0.1:49700"), axis("y", "127.0.0.1:49701"))

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_NonASCIIName(t *testing.T) {
	cfg := gantry("", axis("ä", "10.0.0.1"))

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected ASCII error, got nil")
	}
}

func TestValidate_MirrorOverflow(t *testing.T) {
	cfg := gantry("", axis("x", "10.0.0.1"), axis("y", "10.0.0.2"))
	cfg.StatusMirror = &MirrorConfig{
		Endpoint: "10.0.0.9:502",
		BaseSlot: 3276, // (3276+2)*20-1 = 65559
	}

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected overflow error, got nil")
	}

	cfg.StatusMirror.BaseSlot = 3275 // ends at 65539 - still beyond
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected overflow error, got nil")
	}

	cfg.StatusMirror.BaseSlot = 3274 // ends at 65519
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_ProgramOneActionPerStep(t *testing.T) {
	cfg := gantry("", axis("x", "10.0.0.1"))
	cfg.Program = []StepConfig{
		{Home: true, Move: []float64{1}},
	}

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected one-action error, got nil")
	}

	cfg.Program = []StepConfig{{}}
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for empty step, got nil")
	}
}

func TestValidate_ProgramMoveTooLong(t *testing.T) {
	cfg := gantry("", axis("x", "10.0.0.1"))
	cfg.Program = []StepConfig{
		{Move: []float64{1, 2}},
	}

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected length error, got nil")
	}
}

func TestValidate_ProgramVelocityAxisRange(t *testing.T) {
	cfg := gantry("", axis("x", "10.0.0.1"), axis("y", "10.0.0.2"))
	cfg.Program = []StepConfig{
		{Velocity: &VelocityStep{Axis: 2, Value: 10}},
	}

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected axis range error, got nil")
	}

	cfg.Program[0].Velocity.Axis = 1
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
