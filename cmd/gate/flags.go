package main

import (
	"flag"
	"fmt"
	"strconv"

	"github.com/Naresh-ado/parking-final/internal/config"
)

// options are the command line settings that are not part of GateConfig.
type options struct {
	configPath string
	preview    bool
	verbose    bool
	listPorts  bool
	version    bool
}

// overrides maps flag names to the GateConfig fields they replace.
var overrides = map[string]func(cfg *config.GateConfig, v string) error{
	"camera":    func(c *config.GateConfig, v string) error { c.Camera = &v; return nil },
	"training":  func(c *config.GateConfig, v string) error { c.TrainingDir = &v; return nil },
	"cascade":   func(c *config.GateConfig, v string) error { c.CascadePath = &v; return nil },
	"port":      func(c *config.GateConfig, v string) error { c.SerialPort = &v; return nil },
	"authority": func(c *config.GateConfig, v string) error { c.AuthorityURL = &v; return nil },
	"journal":   func(c *config.GateConfig, v string) error { c.JournalPath = &v; return nil },
	"listen":    func(c *config.GateConfig, v string) error { c.Listen = &v; return nil },
	"baud": func(c *config.GateConfig, v string) error {
		n, err := strconv.Atoi(v)
		c.BaudRate = &n
		return err
	},
	"spot": func(c *config.GateConfig, v string) error {
		n, err := strconv.Atoi(v)
		c.SpotID = &n
		return err
	},
}

// newFlagSet declares the gate flags on a fresh FlagSet.
func newFlagSet(opts *options) *flag.FlagSet {
	fs := flag.NewFlagSet("gate", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "Path to a gate JSON config file (defaults apply when empty)")
	fs.BoolVar(&opts.preview, "preview", false, "Show an annotated preview window; press q in it to quit")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")
	fs.BoolVar(&opts.listPorts, "list-ports", false, "List serial ports and exit")
	fs.BoolVar(&opts.version, "version", false, "Print the version and exit")

	fs.String("camera", "", "Camera stream URL or device index")
	fs.String("training", "", "Training image directory with one sub-directory per category")
	fs.String("cascade", "", "Haar cascade XML for the region fallback")
	fs.String("port", "", "Gate controller serial port; empty runs in simulation mode")
	fs.Int("baud", 0, "Gate controller baud rate")
	fs.String("authority", "", "Authority check-entry URL")
	fs.Int("spot", 0, "Parking spot ID sent with every check")
	fs.String("journal", "", "SQLite decision journal path; empty disables the journal")
	fs.String("listen", "", "Admin debug server address; empty disables it")
	return fs
}

// applyFlags copies every flag that was set on the command line into cfg.
func applyFlags(fs *flag.FlagSet, cfg *config.GateConfig) error {
	var err error
	fs.Visit(func(f *flag.Flag) {
		set, ok := overrides[f.Name]
		if !ok || err != nil {
			return
		}
		if e := set(cfg, f.Value.String()); e != nil {
			err = fmt.Errorf("invalid -%s: %w", f.Name, e)
		}
	})
	return err
}

// loadConfig reads the config file named by opts, if any, and applies the
// command line overrides.
func loadConfig(fs *flag.FlagSet, opts options) (*config.GateConfig, error) {
	cfg := config.EmptyGateConfig()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.LoadGateConfig(opts.configPath); err != nil {
			return nil, err
		}
	}
	if err := applyFlags(fs, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
