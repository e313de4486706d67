package config

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/sensor_events/internal/event"
)

// EnvPrefix prefixes environment overrides: SENSORD_MQTT_BROKER overrides
// MQTT_BROKER from the file.
const EnvPrefix = "SENSORD"

// Source kinds.
const (
	SourceEvdev   = "evdev"
	SourceHub     = "hub"
	SourceMPU9250 = "mpu9250"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	MQTTClientIDDisplay  string

	// Topics
	TopicEvents  string // events go to <TopicEvents>/<sensor>
	TopicControl string

	// Event source
	SourceKind     string // evdev, hub or mpu9250
	DevicePath     string // input event node or serial port
	SerialBaudRate uint
	RingCapacity   int // raw records buffered between reads

	// Device control attributes
	ControlDir       string // empty disables attribute writes
	ControlPerSensor bool

	// Conversion
	Profile        string // built-in conversion table
	ConversionFile string // YAML table, overrides Profile

	// Sensors and timing
	EnabledSensors []event.SensorID // empty means every sensor of the table
	PollRate       physic.Frequency
	ReadBatchSize  int
	PollTimeoutMS  int
	IgnoreWindowMS int

	// Event log
	StorePath string // empty disables the sqlite log

	// Web Server
	WebServerPort int

	// SSD1306 display at 0x3C
	DisplaySensor         event.SensorID
	DisplayUpdateInterval int // milliseconds

	// MPU9250 over SPI
	MPUSPIDevice string
	MPUCSPin     string
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	MPUAccelRange byte
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	MPUGyroRange byte
}

// defaults are applied before the file and the environment. Every known key
// has an entry so environment overrides work without a file.
var defaults = map[string]string{
	"MQTT_BROKER":             "tcp://localhost:1883",
	"MQTT_CLIENT_ID_PRODUCER": "sensord-producer",
	"MQTT_CLIENT_ID_CONSOLE":  "sensord-console",
	"MQTT_CLIENT_ID_WEB":      "sensord-web",
	"MQTT_CLIENT_ID_DISPLAY":  "sensord-display",
	"TOPIC_EVENTS":            "sensors/events",
	"TOPIC_CONTROL":           "sensors/control",
	"SOURCE_KIND":             SourceEvdev,
	"DEVICE_PATH":             "",
	"SERIAL_BAUD_RATE":        "115200",
	"RING_CAPACITY":           "4",
	"CONTROL_DIR":             "",
	"CONTROL_PER_SENSOR":      "false",
	"PROFILE":                 "accel_8610",
	"CONVERSION_FILE":         "",
	"ENABLED_SENSORS":         "",
	"POLL_RATE_HZ":            "50Hz",
	"READ_BATCH_SIZE":         "16",
	"POLL_TIMEOUT_MS":         "500",
	"IGNORE_WINDOW_MS":        "10",
	"STORE_PATH":              "",
	"WEB_SERVER_PORT":         "8080",
	"DISPLAY_SENSOR":          "accelerometer",
	"DISPLAY_UPDATE_INTERVAL": "200",
	"MPU_SPI_DEVICE":          "/dev/spidev0.0",
	"MPU_CS_PIN":              "GPIO8",
	"MPU_ACCEL_RANGE":         "0",
	"MPU_GYRO_RANGE":          "0",
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads a KEY=VALUE configuration file and applies SENSORD_* environment
// overrides. An empty path loads defaults and environment only.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("env")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if err := cfg.setValue(name, strings.TrimSpace(v.GetString(key))); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_EVENTS":
		c.TopicEvents = strings.TrimSuffix(value, "/")
	case "TOPIC_CONTROL":
		c.TopicControl = value

	// Event source
	case "SOURCE_KIND":
		c.SourceKind = strings.ToLower(value)
	case "DEVICE_PATH":
		c.DevicePath = value
	case "SERIAL_BAUD_RATE":
		rate, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid SERIAL_BAUD_RATE %q: %w", value, err)
		}
		c.SerialBaudRate = uint(rate)
	case "RING_CAPACITY":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid RING_CAPACITY %q: %w", value, err)
		}
		c.RingCapacity = n

	// Device control
	case "CONTROL_DIR":
		c.ControlDir = value
	case "CONTROL_PER_SENSOR":
		on, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid CONTROL_PER_SENSOR %q: %w", value, err)
		}
		c.ControlPerSensor = on

	// Conversion
	case "PROFILE":
		c.Profile = value
	case "CONVERSION_FILE":
		c.ConversionFile = value

	// Sensors and timing
	case "ENABLED_SENSORS":
		c.EnabledSensors = nil
		for _, name := range strings.Split(value, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			id, err := event.ParseSensor(name)
			if err != nil {
				return fmt.Errorf("invalid ENABLED_SENSORS: %w", err)
			}
			c.EnabledSensors = append(c.EnabledSensors, id)
		}
	case "POLL_RATE_HZ":
		var f physic.Frequency
		if err := f.Set(value); err != nil {
			return fmt.Errorf("invalid POLL_RATE_HZ %q: %w", value, err)
		}
		c.PollRate = f
	case "READ_BATCH_SIZE":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid READ_BATCH_SIZE %q: %w", value, err)
		}
		c.ReadBatchSize = n
	case "POLL_TIMEOUT_MS":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid POLL_TIMEOUT_MS %q: %w", value, err)
		}
		c.PollTimeoutMS = ms
	case "IGNORE_WINDOW_MS":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IGNORE_WINDOW_MS %q: %w", value, err)
		}
		c.IgnoreWindowMS = ms

	// Event log
	case "STORE_PATH":
		c.StorePath = value

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_SENSOR":
		id, err := event.ParseSensor(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_SENSOR: %w", err)
		}
		c.DisplaySensor = id
	case "DISPLAY_UPDATE_INTERVAL":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = ms

	// MPU9250
	case "MPU_SPI_DEVICE":
		c.MPUSPIDevice = value
	case "MPU_CS_PIN":
		c.MPUCSPin = value
	case "MPU_ACCEL_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MPU_ACCEL_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("MPU_ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", rangeVal)
		}
		c.MPUAccelRange = byte(rangeVal)
	case "MPU_GYRO_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MPU_GYRO_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("MPU_GYRO_RANGE must be 0-3 (0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s), got %d", rangeVal)
		}
		c.MPUGyroRange = byte(rangeVal)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicEvents == "" {
		return fmt.Errorf("TOPIC_EVENTS is required")
	}
	switch c.SourceKind {
	case SourceEvdev, SourceHub:
		if c.DevicePath == "" {
			return fmt.Errorf("DEVICE_PATH is required for SOURCE_KIND=%s", c.SourceKind)
		}
	case SourceMPU9250:
		if c.MPUSPIDevice == "" || c.MPUCSPin == "" {
			return fmt.Errorf("MPU_SPI_DEVICE and MPU_CS_PIN are required for SOURCE_KIND=%s", c.SourceKind)
		}
	default:
		return fmt.Errorf("SOURCE_KIND must be %s, %s or %s, got %q", SourceEvdev, SourceHub, SourceMPU9250, c.SourceKind)
	}
	if c.Profile == "" && c.ConversionFile == "" {
		return fmt.Errorf("PROFILE or CONVERSION_FILE is required")
	}
	if c.ReadBatchSize < 1 {
		return fmt.Errorf("READ_BATCH_SIZE must be at least 1, got %d", c.ReadBatchSize)
	}
	if c.RingCapacity < 1 {
		return fmt.Errorf("RING_CAPACITY must be at least 1, got %d", c.RingCapacity)
	}
	if c.PollRate <= 0 {
		return fmt.Errorf("POLL_RATE_HZ must be positive")
	}
	if c.PollTimeoutMS < 0 || c.IgnoreWindowMS < 0 {
		return fmt.Errorf("POLL_TIMEOUT_MS and IGNORE_WINDOW_MS must not be negative")
	}
	if c.DisplayUpdateInterval < 1 {
		return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be at least 1, got %d", c.DisplayUpdateInterval)
	}
	return nil
}

// PollDelay is the sampling period requested from the device.
func (c *Config) PollDelay() time.Duration {
	return c.PollRate.Period()
}

func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.PollTimeoutMS) * time.Millisecond
}

func (c *Config) IgnoreWindow() time.Duration {
	return time.Duration(c.IgnoreWindowMS) * time.Millisecond
}

func (c *Config) DisplayInterval() time.Duration {
	return time.Duration(c.DisplayUpdateInterval) * time.Millisecond
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
