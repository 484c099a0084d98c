package config

import (
	"flag"
	"os"

	"github.com/BurntSushi/toml"
)

// DefaultConfigFile is the config file looked up in the current directory
// when no -config flag is given.
const DefaultConfigFile = "config.toml"

// Config holds the whole application configuration.
type Config struct {
	Debug bool `toml:"debug"`
	Log   struct {
		Filename string `toml:"filename"`
	} `toml:"log"`
	FRU struct {
		DeviceFile string `toml:"device_file"`
	} `toml:"fru"`
	WebSocket struct {
		Enabled bool   `toml:"enabled"`
		Host    string `toml:"host"`
		Port    int    `toml:"port"`
	} `toml:"websocket"`
	TLS struct {
		Enabled  bool   `toml:"enabled"`
		CertFile string `toml:"cert_file"`
		KeyFile  string `toml:"key_file"`
	} `toml:"tls"`
	WebSocketClient struct {
		Enabled bool   `toml:"enabled"`
		Addr    string `toml:"addr"`
	} `toml:"websocket_client"`
}

// NewConfig returns a Config with the default settings.
func NewConfig() *Config {
	cfg := &Config{
		Debug: false,
	}
	cfg.Log.Filename = "intel-ipmi-oem.log"
	cfg.WebSocket.Host = "localhost"
	cfg.WebSocket.Port = 8080
	cfg.WebSocketClient.Addr = "ws://localhost:8080/ws"
	return cfg
}

// LoadConfig loads the configuration with the following precedence:
// 1. the config file at the given path, when one is given
// 2. DefaultConfigFile in the current directory, when it exists
// 3. the defaults
func LoadConfig(configPath string) (*Config, error) {
	config := NewConfig()

	filePath := configPath
	if filePath == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			filePath = DefaultConfigFile
		} else {
			return config, nil
		}
	}

	if _, err := toml.DecodeFile(filePath, config); err != nil {
		return nil, err
	}

	return config, nil
}

// ApplyCommandLineArgs overrides config values with the flags that were
// given on the command line.
func (c *Config) ApplyCommandLineArgs(args CommandLineArgs) {
	if args.DebugSpecified {
		c.Debug = args.Debug
	}
	if args.LogFilenameSpecified {
		c.Log.Filename = args.LogFilename
	}
	if args.FRUDeviceFileSpecified {
		c.FRU.DeviceFile = args.FRUDeviceFile
	}
	// websocket server
	if args.WebSocketEnabledSpecified {
		c.WebSocket.Enabled = args.WebSocketEnabled
	}
	if args.WebSocketHostSpecified {
		c.WebSocket.Host = args.WebSocketHost
	}
	if args.WebSocketPortSpecified {
		c.WebSocket.Port = args.WebSocketPort
	}
	// websocket TLS
	if args.TLSEnabledSpecified {
		c.TLS.Enabled = args.TLSEnabled
	}
	if args.TLSCertFileSpecified {
		c.TLS.CertFile = args.TLSCertFile
	}
	if args.TLSKeyFileSpecified {
		c.TLS.KeyFile = args.TLSKeyFile
	}
	// websocket client
	if args.WebSocketClientEnabledSpecified {
		c.WebSocketClient.Enabled = args.WebSocketClientEnabled
	}
	if args.WebSocketClientAddrSpecified {
		c.WebSocketClient.Addr = args.WebSocketClientAddr
	}
	// -ws-both turns on server and client together
	if args.WebSocketBothSpecified && args.WebSocketBoth {
		c.WebSocket.Enabled = true
		c.WebSocketClient.Enabled = true
	}
}

// CommandLineArgs holds the values given on the command line. The Specified
// booleans record whether the flag appeared at all, so unset flags never
// override the config file.
type CommandLineArgs struct {
	ConfigFile      string
	ConfigSpecified bool

	Debug          bool
	DebugSpecified bool

	LogFilename          string
	LogFilenameSpecified bool

	FRUDeviceFile          string
	FRUDeviceFileSpecified bool

	WebSocketEnabled          bool
	WebSocketEnabledSpecified bool
	WebSocketHost             string
	WebSocketHostSpecified    bool
	WebSocketPort             int
	WebSocketPortSpecified    bool

	TLSEnabled           bool
	TLSEnabledSpecified  bool
	TLSCertFile          string
	TLSCertFileSpecified bool
	TLSKeyFile           string
	TLSKeyFileSpecified  bool

	WebSocketClientEnabled          bool
	WebSocketClientEnabledSpecified bool
	WebSocketClientAddr             string
	WebSocketClientAddrSpecified    bool

	WebSocketBoth          bool
	WebSocketBothSpecified bool
}

// ParseCommandLineArgs parses the command line.
func ParseCommandLineArgs() CommandLineArgs {
	var args CommandLineArgs

	configFileFlag := flag.String("config", "", "path of the TOML config file")

	debugFlag := flag.Bool("debug", false, "enable debug logging")
	logFilenameFlag := flag.String("log", "intel-ipmi-oem.log", "log file name")

	fruFileFlag := flag.String("fru-file", "", "path of the FRU device JSON file")

	websocketFlag := flag.Bool("websocket", false, "enable the websocket bridge server")
	wsHostFlag := flag.String("ws-host", "localhost", "websocket bridge listen host")
	wsPortFlag := flag.Int("ws-port", 8080, "websocket bridge listen port")

	wsTLSFlag := flag.Bool("ws-tls", false, "enable TLS on the websocket bridge")
	wsCertFileFlag := flag.String("ws-cert-file", "", "path of the TLS certificate file")
	wsKeyFileFlag := flag.String("ws-key-file", "", "path of the TLS key file")

	wsClientFlag := flag.Bool("ws-client", false, "run the console against a websocket bridge")
	wsClientAddrFlag := flag.String("ws-client-addr", "ws://localhost:8080/ws", "websocket bridge address to connect to")

	wsBothFlag := flag.Bool("ws-both", false, "enable websocket server and client together (for testing)")

	flag.Parse()

	// only flags that appeared on the command line may override the file
	specified := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		specified[f.Name] = true
	})

	args.ConfigFile = *configFileFlag
	args.ConfigSpecified = specified["config"]

	args.Debug = *debugFlag
	args.DebugSpecified = specified["debug"]

	args.LogFilename = *logFilenameFlag
	args.LogFilenameSpecified = specified["log"]

	args.FRUDeviceFile = *fruFileFlag
	args.FRUDeviceFileSpecified = specified["fru-file"]

	args.WebSocketEnabled = *websocketFlag
	args.WebSocketEnabledSpecified = specified["websocket"]

	args.WebSocketHost = *wsHostFlag
	args.WebSocketHostSpecified = specified["ws-host"]

	args.WebSocketPort = *wsPortFlag
	args.WebSocketPortSpecified = specified["ws-port"]

	args.TLSEnabled = *wsTLSFlag
	args.TLSEnabledSpecified = specified["ws-tls"]

	args.TLSCertFile = *wsCertFileFlag
	args.TLSCertFileSpecified = specified["ws-cert-file"]

	args.TLSKeyFile = *wsKeyFileFlag
	args.TLSKeyFileSpecified = specified["ws-key-file"]

	args.WebSocketClientEnabled = *wsClientFlag
	args.WebSocketClientEnabledSpecified = specified["ws-client"]

	args.WebSocketClientAddr = *wsClientAddrFlag
	args.WebSocketClientAddrSpecified = specified["ws-client-addr"]

	args.WebSocketBoth = *wsBothFlag
	args.WebSocketBothSpecified = specified["ws-both"]

	return args
}
