// Command htp1ctl controls a Monoprice HTP-1 processor over its
// websocket protocol.
//
// This command demonstrates a complete HTP-1 controller with:
//   - CLI argument parsing
//   - Configuration file support (YAML)
//   - mDNS device discovery
//   - Interactive command interface
//   - Protocol logging
//
// Usage:
//
//	htp1ctl [flags] [command [args]]
//
// Flags:
//
//	-host string          Device host (e.g. htp1.local or 192.168.1.40)
//	-config string        Configuration file path (YAML)
//	-discover             Discover the device via mDNS when no host is given
//	-interactive          Enable interactive command mode
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-protocol-log string  Write protocol events to this .hlog file
//	-timeout duration     Connect timeout (default 10s)
//
// Examples:
//
//	# Show device status
//	htp1ctl -host htp1.local status
//
//	# Set the volume
//	htp1ctl -host 192.168.1.40 volume -35
//
//	# Interactive session with protocol capture
//	htp1ctl -host htp1.local -interactive -protocol-log session.hlog
//
//	# Discover the device on the local network first
//	htp1ctl -discover -interactive
//
// Interactive Commands:
//
//	status            - Show power, volume, mute, input and upmix
//	volume [db]       - Show or set the volume in dB
//	mute [on|off]     - Show or toggle mute
//	power [on|off]    - Show or set power state
//	input [label]     - Show or select the active input
//	inputs            - List visible input labels
//	upmix [name]      - Show or select the upmix mode
//	upmixes           - List available upmix modes
//	watch <path>      - Print updates for a state path (watch off to stop)
//	quit              - Exit
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/htp1-protocol/htp1-go/cmd/htp1ctl/interactive"
	"github.com/htp1-protocol/htp1-go/pkg/discovery"
	"github.com/htp1-protocol/htp1-go/pkg/htp1"
	hlog "github.com/htp1-protocol/htp1-go/pkg/log"
)

// Config holds the htp1ctl configuration. Fields with yaml tags can
// also be set from the -config file; flags given on the command line
// take precedence.
type Config struct {
	ConfigFile  string
	Host        string        `yaml:"host"`
	Discover    bool          `yaml:"discover"`
	Interactive bool          `yaml:"interactive"`
	LogLevel    string        `yaml:"log-level"`
	ProtocolLog string        `yaml:"protocol-log"`
	Timeout     time.Duration `yaml:"timeout"`
}

var config Config

func init() {
	flag.StringVar(&config.ConfigFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&config.Host, "host", "", "Device host (e.g. htp1.local)")
	flag.BoolVar(&config.Discover, "discover", false, "Discover the device via mDNS when no host is given")
	flag.BoolVar(&config.Interactive, "interactive", false, "Enable interactive command mode")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&config.ProtocolLog, "protocol-log", "", "Write protocol events to this .hlog file")
	flag.DurationVar(&config.Timeout, "timeout", 10*time.Second, "Connect timeout")
}

func main() {
	flag.Parse()

	if config.ConfigFile != "" {
		if err := loadConfigFile(config.ConfigFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config file: %v\n", err)
			os.Exit(1)
		}
	}

	logger := setupLogging(config.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if config.Host == "" {
		if !config.Discover {
			fmt.Fprintln(os.Stderr, "Error: -host or -discover required")
			flag.Usage()
			os.Exit(1)
		}
		host, err := discoverHost(ctx, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Discovery failed: %v\n", err)
			os.Exit(1)
		}
		config.Host = host
	}

	cfg := htp1.DefaultConfig(config.Host)
	cfg.Logger = logger

	var plog *hlog.FileLogger
	if config.ProtocolLog != "" {
		var err error
		plog, err = hlog.NewFileLogger(config.ProtocolLog)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening protocol log: %v\n", err)
			os.Exit(1)
		}
		defer plog.Close()
		cfg.ProtocolLogger = plog
	}

	client := htp1.New(cfg)
	defer client.Stop()

	connectCtx, connectCancel := context.WithTimeout(ctx, config.Timeout)
	err := client.Connect(connectCtx)
	connectCancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to %s: %v\n", config.Host, err)
		os.Exit(1)
	}
	logger.Info("connected", "host", config.Host)

	// One-shot command mode.
	if flag.NArg() > 0 {
		if err := interactive.Execute(os.Stdout, client, flag.Arg(0), flag.Args()[1:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if !config.Interactive {
		if err := interactive.Execute(os.Stdout, client, "status", nil); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	session, err := interactive.New(client)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting interactive mode: %v\n", err)
		os.Exit(1)
	}
	session.Run(ctx, cancel)
}

// loadConfigFile fills in configuration values from a YAML file.
// Flags set explicitly on the command line keep their values.
func loadConfigFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if !set["host"] && file.Host != "" {
		config.Host = file.Host
	}
	if !set["discover"] && file.Discover {
		config.Discover = true
	}
	if !set["interactive"] && file.Interactive {
		config.Interactive = true
	}
	if !set["log-level"] && file.LogLevel != "" {
		config.LogLevel = file.LogLevel
	}
	if !set["protocol-log"] && file.ProtocolLog != "" {
		config.ProtocolLog = file.ProtocolLog
	}
	if !set["timeout"] && file.Timeout != 0 {
		config.Timeout = file.Timeout
	}
	return nil
}

func setupLogging(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}

func discoverHost(ctx context.Context, logger *slog.Logger) (string, error) {
	logger.Info("discovering device", "service", discovery.ServiceType)

	browser := discovery.NewBrowser(discovery.DefaultConfig())
	device, err := browser.FindFirst(ctx)
	if err != nil {
		return "", err
	}
	if device == nil {
		return "", fmt.Errorf("no %s device found on the local network", discovery.ServiceType)
	}

	logger.Info("discovered device", "instance", device.InstanceName, "host", device.ControlHost())
	return device.ControlHost(), nil
}
