// internal/writer/types.go
package writer

import "github.com/tamzrod/cve-gantry/internal/status"

// AxisBlock is where one axis status block lives on the mirror endpoint.
type AxisBlock struct {
	Slot     uint16 // block index; first register = Slot * status.SlotsPerAxis
	AxisName string
}

// Plan is the fully-built mirror plan.
type Plan struct {
	Endpoint string
	Protocol string // modbus | ingest
	UnitID   uint8
	Axes     []AxisBlock
}

// StatusWriter is the delivery-only contract for axis status.
// It receives a snapshot and writes it verbatim.
// No logic, no interpretation.
type StatusWriter interface {
	WriteStatus(s status.Snapshot) error
}
