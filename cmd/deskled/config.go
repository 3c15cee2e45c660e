package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/nkiryanov/deskled/internal/actuator"
	"github.com/nkiryanov/deskled/internal/logger"
	"github.com/nkiryanov/deskled/internal/service/actuation"
)

const (
	defaultListenAddr   = "localhost:8000"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProd
	defaultDBMaxConns   = 10
	defaultActuator     = actuator.KindSPI
	defaultLEDLength    = 60
	defaultMQTTTopic    = "deskled/color"
	defaultMQTTClientID = "deskled"

	configPathEnv = "DESKLED_CONFIG"
)

type Config struct {
	// Default logging level
	LogLevel string `yaml:"log_level"`

	// Address on which the service will be run
	ListenAddr string `yaml:"listen_address"`

	// Database to connect to
	DatabaseDSN string `yaml:"database_dsn"`
	DBMaxConns  int32  `yaml:"database_max_conns"`

	// Environment
	Environment string `yaml:"environment"`

	OAuth2 OAuth2Config   `yaml:"oauth2"`
	Login  LoginConfig    `yaml:"login"`
	LED    LEDConfig      `yaml:"led"`
	MQTT   MQTTConfig     `yaml:"mqtt"`
	Influx InfluxDBConfig `yaml:"influxdb"`
}

// The only registered OAuth2 client
type OAuth2Config struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// The only user allowed to log in
type LoginConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type LEDConfig struct {
	// One of spi, mqtt, log
	Actuator string `yaml:"actuator"`

	// SPI device path, discovered in /dev when empty
	SPIDevice string `yaml:"spi_device"`

	// Number of LEDs on the strip
	Length int `yaml:"length"`

	// Capacity of the actuation queue
	QueueSize int `yaml:"queue_size"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Telemetry is disabled while URL is empty
type InfluxDBConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

func NewConfig() *Config {
	return &Config{
		LogLevel:    defaultLoggingLevel,
		ListenAddr:  defaultListenAddr,
		DBMaxConns:  defaultDBMaxConns,
		Environment: defaultEnvironment,
		LED: LEDConfig{
			Actuator:  defaultActuator,
			Length:    defaultLEDLength,
			QueueSize: actuation.DefaultQueueSize,
		},
		MQTT: MQTTConfig{
			Topic:    defaultMQTTTopic,
			ClientID: defaultMQTTClientID,
		},
	}
}

// Path to YAML config from '--config' flag or DESKLED_CONFIG env, empty if not given
func ConfigPath(args []string, getenv func(string) string) (string, error) {
	fs := pflag.NewFlagSet("deskled-config", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist = pflag.ParseErrorsWhitelist{UnknownFlags: true}
	fs.Usage = func() {}

	path := fs.StringP("config", "c", getenv(configPathEnv), "")
	if err := fs.Parse(args); err != nil && !errors.Is(err, pflag.ErrHelp) {
		return "", err
	}

	return *path, nil
}

// Load options from YAML file, options missing in file are kept
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("can't read config file. Err: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("can't parse config file %s. Err: %w", path, err)
	}
	return nil
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}

	setInt := func(o *int) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			n, err := strconv.Atoi(value)
			if err != nil {
				return err
			}
			*o = n
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":          setString(&c.ListenAddr),
		"DATABASE_URI":         setString(&c.DatabaseDSN),
		"LOG_LEVEL":            setString(&c.LogLevel),
		"ENVIRONMENT":          setString(&c.Environment),
		"OAUTH2_CLIENT_ID":     setString(&c.OAuth2.ClientID),
		"OAUTH2_CLIENT_SECRET": setString(&c.OAuth2.ClientSecret),
		"LOGIN_USERNAME":       setString(&c.Login.Username),
		"LOGIN_PASSWORD":       setString(&c.Login.Password),
		"LED_ACTUATOR":         setString(&c.LED.Actuator),
		"LED_SPI_DEVICE":       setString(&c.LED.SPIDevice),
		"LED_LENGTH":           setInt(&c.LED.Length),
		"LED_QUEUE_SIZE":       setInt(&c.LED.QueueSize),
		"MQTT_BROKER":          setString(&c.MQTT.Broker),
		"MQTT_TOPIC":           setString(&c.MQTT.Topic),
		"MQTT_CLIENT_ID":       setString(&c.MQTT.ClientID),
		"MQTT_USERNAME":        setString(&c.MQTT.Username),
		"MQTT_PASSWORD":        setString(&c.MQTT.Password),
		"INFLUXDB_URL":         setString(&c.Influx.URL),
		"INFLUXDB_TOKEN":       setString(&c.Influx.Token),
		"INFLUXDB_ORG":         setString(&c.Influx.Org),
		"INFLUXDB_BUCKET":      setString(&c.Influx.Bucket),
	}

	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			return fmt.Errorf("invalid %s. Err: %w", key, err)
		}
	}
	return nil
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("deskled", pflag.ContinueOnError)

	// Already handled by ConfigPath, declared to be accepted
	_ = fs.StringP("config", "c", "", "Path to YAML config file")

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVar(&c.OAuth2.ClientID, "client-id", c.OAuth2.ClientID, "OAuth2 client id")
	fs.StringVar(&c.OAuth2.ClientSecret, "client-secret", c.OAuth2.ClientSecret, "OAuth2 client secret")
	fs.StringVar(&c.Login.Username, "login-username", c.Login.Username, "Login username")
	fs.StringVar(&c.Login.Password, "login-password", c.Login.Password, "Login password")
	fs.StringVar(&c.LED.Actuator, "actuator", c.LED.Actuator, "Actuator backend (spi, mqtt, log)")
	fs.StringVar(&c.LED.SPIDevice, "spi-device", c.LED.SPIDevice, "SPI device path, discovered when empty")
	fs.IntVar(&c.LED.Length, "led-length", c.LED.Length, "Number of LEDs on the strip")
	fs.IntVar(&c.LED.QueueSize, "queue-size", c.LED.QueueSize, "Actuation queue capacity")
	fs.StringVar(&c.MQTT.Broker, "mqtt-broker", c.MQTT.Broker, "MQTT broker url")
	fs.StringVar(&c.MQTT.Topic, "mqtt-topic", c.MQTT.Topic, "MQTT topic colors are published to")
	fs.StringVar(&c.Influx.URL, "influxdb-url", c.Influx.URL, "InfluxDB url, telemetry disabled when empty")

	return fs.Parse(args)
}

// Validate checks options the service can't start without
func (c *Config) Validate() error {
	var errs []error

	required := map[string]string{
		"database dsn":         c.DatabaseDSN,
		"oauth2 client id":     c.OAuth2.ClientID,
		"oauth2 client secret": c.OAuth2.ClientSecret,
		"login username":       c.Login.Username,
		"login password":       c.Login.Password,
	}
	for name, value := range required {
		if value == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}

	switch c.LED.Actuator {
	case actuator.KindSPI:
		if c.LED.Length <= 0 {
			errs = append(errs, fmt.Errorf("led length must be positive, got %d", c.LED.Length))
		}
	case actuator.KindMQTT:
		if c.MQTT.Broker == "" || c.MQTT.Topic == "" {
			errs = append(errs, errors.New("mqtt broker and topic are required for mqtt actuator"))
		}
	case actuator.KindLog:
	default:
		errs = append(errs, fmt.Errorf("unknown actuator %q", c.LED.Actuator))
	}

	return errors.Join(errs...)
}

func (c *Config) ActuatorConfig() actuator.Config {
	return actuator.Config{
		Kind:      c.LED.Actuator,
		SPIDevice: c.LED.SPIDevice,
		LEDLength: c.LED.Length,
		MQTT: actuator.MQTTConfig{
			Broker:   c.MQTT.Broker,
			ClientID: c.MQTT.ClientID,
			Username: c.MQTT.Username,
			Password: c.MQTT.Password,
			Topic:    c.MQTT.Topic,
		},
	}
}
