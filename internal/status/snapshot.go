// internal/status/snapshot.go
package status

// Snapshot represents exactly what the writer is allowed to deliver for one axis.
// It contains no logic and no memory of the past beyond current state.
type Snapshot struct {
	Health         uint16
	LastErrorCode  uint16
	SecondsInError uint16
	AxisState      uint16
	StatusWord     uint32
	Name           string
}
