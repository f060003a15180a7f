// internal/config/config.go
package config

type Config struct {
	Bridge BridgeConfig `yaml:"bridge"`
}

type BridgeConfig struct {
	Link        LinkConfig    `yaml:"link"`
	Device      string        `yaml:"device"`       // unique id; empty = first enumerated
	NumericBase int           `yaml:"numeric_base"` // 2, 8, 10 or 16
	Gpio        []GpioConfig  `yaml:"gpio"`
	I2c         *I2cConfig    `yaml:"i2c"`
	Poll        PollConfig    `yaml:"poll"`
	Hotplug     HotplugConfig `yaml:"hotplug"`
	Mirror      *MirrorConfig `yaml:"mirror"`
	HTTP        HTTPConfig    `yaml:"http"`
	Metrics     MetricsConfig `yaml:"metrics"`
	Log         LogConfig     `yaml:"log"`
}

// ---- LINK ----

type LinkConfig struct {
	Driver  string   `yaml:"driver"`  // only "sim" ships in-tree
	Devices []string `yaml:"devices"` // sim: visible unique ids
}

// ---- GPIO ----

type GpioConfig struct {
	Channel    int    `yaml:"channel"`
	Mode       string `yaml:"mode"`
	Speed      string `yaml:"speed"`
	Pull       string `yaml:"pull"`
	OutputType string `yaml:"output_type"`
}

// ---- I2C ----

type I2cConfig struct {
	AddressMode   string `yaml:"address_mode"`
	OwnAddress    uint16 `yaml:"own_address"`
	AnalogFilter  bool   `yaml:"analog_filter"`
	DigitalFilter bool   `yaml:"digital_filter"`
	DNF           uint8  `yaml:"dnf"`
	Speed         string `yaml:"speed"`
	FrequencyKHz  uint32 `yaml:"frequency_khz"` // 0 = class nominal
	RiseTimeNs    int    `yaml:"rise_time_ns"`
	FallTimeNs    int    `yaml:"fall_time_ns"`
}

// ---- POLL ----

type PollConfig struct {
	Enabled    bool `yaml:"enabled"`
	IntervalMs int  `yaml:"interval_ms"`
}

// ---- HOTPLUG ----

type HotplugConfig struct {
	Source string `yaml:"source"` // none | netlink
}

// ---- MIRROR (optional, opt-in) ----

type MirrorConfig struct {
	Transport   string `yaml:"transport"` // modbus | ingest
	Endpoint    string `yaml:"endpoint"`
	UnitID      uint8  `yaml:"unit_id"`
	BaseSlot    uint16 `yaml:"base_slot"`
	CoilAddress uint16 `yaml:"coil_address"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	DeviceName  string `yaml:"device_name"` // empty = device unique id
}

// ---- SURFACES ----

type HTTPConfig struct {
	Listen string `yaml:"listen"` // empty = disabled
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}
