package config

type Config struct {
	Gantry       GantryConfig  `yaml:"gantry"`
	StatusMirror *MirrorConfig `yaml:"status_mirror"`
	Program      []StepConfig  `yaml:"program"`
}

// ---- GANTRY ----

type GantryConfig struct {
	Policy          string        `yaml:"policy"`      // sequential | parallel
	MaxWorkers      int           `yaml:"max_workers"` // parallel only; 0 => one per axis
	SettleMs        int           `yaml:"settle_ms"`
	MaxPollAttempts int           `yaml:"max_poll_attempts"`
	Connect         ConnectConfig `yaml:"connect"`
	Groups          []GroupConfig `yaml:"groups"` // dispatched in order
}

type ConnectConfig struct {
	TimeoutMs int `yaml:"timeout_ms"`
	Attempts  int `yaml:"attempts"`
	BackoffMs int `yaml:"backoff_ms"`
}

type GroupConfig struct {
	Name string       `yaml:"name"`
	Axes []AxisConfig `yaml:"axes"`
}

// ---- AXIS ----

type AxisConfig struct {
	Name     string `yaml:"name"`
	Endpoint string `yaml:"endpoint"` // host or host:port; port defaults to 49700
	Record   int    `yaml:"record"`

	// Device units per mm. Ignored when reference_mm is set.
	ConversionRatio float64 `yaml:"conversion_ratio"`

	// Derive the ratio from the target stored in reference_record,
	// which must correspond to reference_mm millimeters.
	ReferenceRecord int     `yaml:"reference_record"`
	ReferenceMm     float64 `yaml:"reference_mm"`
}

// ---- STATUS MIRROR ----

type MirrorConfig struct {
	Endpoint   string `yaml:"endpoint"`
	Protocol   string `yaml:"protocol"` // modbus | ingest
	UnitID     uint8  `yaml:"unit_id"`
	BaseSlot   uint16 `yaml:"base_slot"` // first axis block; axis i uses base_slot+i
	IntervalMs int    `yaml:"interval_ms"`
	TimeoutMs  int    `yaml:"timeout_ms"`
}

// ---- PROGRAM ----

// StepConfig is one scripted gantry action. Exactly one action per step.
type StepConfig struct {
	Enable     bool          `yaml:"enable"`
	Home       bool          `yaml:"home"`
	Move       []float64     `yaml:"move"`       // -1 keeps an axis where it is
	Velocities []float64     `yaml:"velocities"` // with move only; 0 keeps the current velocity
	Velocity   *VelocityStep `yaml:"velocity"`
	PauseMs    int           `yaml:"pause_ms"`
}

type VelocityStep struct {
	Axis  int     `yaml:"axis"` // flat index across groups
	Value float64 `yaml:"value"`
}

// Axes returns every axis in dispatch order.
func (g GantryConfig) Axes() []AxisConfig {
	var out []AxisConfig
	for _, grp := range g.Groups {
		out = append(out, grp.Axes...)
	}
	return out
}
