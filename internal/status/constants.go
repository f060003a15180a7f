// internal/status/constants.go
package status

// Bridge Status Block layout constants.
// These values define the mirror protocol and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerDevice is the fixed number of holding registers per bridge.
const SlotsPerDevice = 20

// ---- SLOT INDICES ----

// SlotHealthCode holds the bridge health state.
const SlotHealthCode = 0

// SlotLastErrorCode holds the numeric id of the last error (see ErrorCode).
const SlotLastErrorCode = 1

// SlotSecondsInError holds how long (seconds) the bridge has been in error.
const SlotSecondsInError = 2

// SlotSessionState holds the session state (SessionDisconnected..SessionConnected).
const SlotSessionState = 3

// SlotGpioValues holds one bit per channel, set when the channel reads SET.
const SlotGpioValues = 4

// SlotGpioErrors holds one bit per channel whose last read failed.
const SlotGpioErrors = 5

// SlotPollIntervalMs holds the active poll period, 0 when not polling.
const SlotPollIntervalMs = 6

// ---- RESERVED RANGE ----

// Slots 7-10 are reserved for future use.
const SlotReservedStart = 7
const SlotReservedEnd = 10

// ---- DEVICE NAME ----

// SlotDeviceNameStart is the first slot used for the device name.
const SlotDeviceNameStart = 11

// SlotDeviceNameSlots is the number of slots reserved for the device name.
const SlotDeviceNameSlots = 8

// SlotDeviceNameEnd is the last slot used for the device name (inclusive).
const SlotDeviceNameEnd = SlotDeviceNameStart + SlotDeviceNameSlots - 1

// LiveSlots is the number of leading slots a Snapshot fills.
const LiveSlots = SlotPollIntervalMs + 1

// ---- LIMITS ----

// DeviceNameMaxChars is the maximum number of ASCII characters stored for device name.
const DeviceNameMaxChars = 16

// ---- HEALTH CODES ----

const (
	HealthUnknown  uint16 = 0 // boot, nothing polled yet
	HealthOK       uint16 = 1
	HealthError    uint16 = 2
	HealthStale    uint16 = 3 // connected, not polling
	HealthDisabled uint16 = 4 // no session
)

// ---- SESSION STATES ----

const (
	SessionDisconnected uint16 = 0
	SessionConnecting   uint16 = 1
	SessionConnected    uint16 = 2
)
