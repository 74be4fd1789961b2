// internal/status/constants.go
package status

// Axis Status Block layout constants.
// These values define the mirror protocol and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerAxis is the fixed number of registers per axis block.
const SlotsPerAxis = 20

// ---- SLOT INDICES ----

// SlotHealthCode holds the axis health state.
const SlotHealthCode = 0

// SlotLastErrorCode holds the last error code (see ErrorCode).
const SlotLastErrorCode = 1

// SlotSecondsInError holds the duration (in seconds) the axis has been in error.
const SlotSecondsInError = 2

// SlotAxisState holds the session state (axis.State ordinal).
const SlotAxisState = 3

// SlotStatusWordLow / SlotStatusWordHigh hold the last status word read
// from the controller (object 1).
const SlotStatusWordLow = 4
const SlotStatusWordHigh = 5

// ---- RESERVED RANGE ----

// Slots 6-10 are reserved for future use.
const SlotReservedStart = 6
const SlotReservedEnd = 10

// ---- AXIS NAME ----

// SlotAxisNameStart is the first slot used for the axis name.
// The name is always placed at the END of the status block.
const SlotAxisNameStart = 11

// SlotAxisNameSlots is the number of slots reserved for the axis name.
const SlotAxisNameSlots = 8

// SlotAxisNameEnd is the last slot used for the axis name (inclusive).
const SlotAxisNameEnd = SlotAxisNameStart + SlotAxisNameSlots - 1

// ---- LIMITS ----

// AxisNameMaxChars is the maximum number of ASCII characters stored for the axis name.
const AxisNameMaxChars = 16

// ---- HEALTH CODES ----

// HealthUnknown represents an unknown or boot state.
const HealthUnknown uint16 = 0

// HealthOK represents an idle, healthy axis.
const HealthOK uint16 = 1

// HealthError represents an axis whose last operation failed.
const HealthError uint16 = 2

// HealthBusy represents an axis with an operation in progress.
const HealthBusy uint16 = 3

// HealthDisconnected represents a closed session.
const HealthDisconnected uint16 = 4
