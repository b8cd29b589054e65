package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/strager/brainfxxck/wasm"
)

// envPrefix is prepended to every option's environment variable, so
// --tape-size can also be set with BRAINFXXCK_TAPE_SIZE.
const envPrefix = "BRAINFXXCK"

type config struct {
	ConfigFile string
	NoOptimize bool
	TapeSize   int
	Timeout    time.Duration
	LogLevel   zapcore.Level
	LogFormat  string
	Verbose    bool
}

// opt is a single command-line option.
type opt struct {
	destP any // pointer to the destination
	flag  string
	short string
	dflt  any
	desc  string
}

func (c *config) opts() []opt {
	return []opt{
		{&c.ConfigFile, "config", "", "", "Config file (TOML, YAML or JSON)"},
		{&c.NoOptimize, "no-optimize", "", false, "Compile the tree exactly as parsed"},
		{&c.TapeSize, "tape-size", "", wasm.DefaultTapeSize, "Number of tape cells"},
		{&c.Timeout, "timeout", "", time.Duration(0), "Stop programs running longer than this (0 means no limit)"},
		{&c.LogLevel, "log-level", "", zapcore.WarnLevel, "Log level: debug, info, warn, error"},
		{&c.LogFormat, "log-format", "", logFormatConsole, "Log format: console or logfmt"},
		{&c.Verbose, "verbose", "v", false, "Show compilation details (same as --log-level=debug)"},
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	// This normalizes "-" to an underscore in env names.
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	return v
}

// bindOptions adds opts to fs and registers them with v.
func bindOptions(v *viper.Viper, fs *pflag.FlagSet, opts []opt) {
	for _, o := range opts {
		switch destP := o.destP.(type) {
		case *string:
			fs.StringVarP(destP, o.flag, o.short, o.dflt.(string), o.desc)
		case *int:
			fs.IntVarP(destP, o.flag, o.short, o.dflt.(int), o.desc)
		case *bool:
			fs.BoolVarP(destP, o.flag, o.short, o.dflt.(bool), o.desc)
		case *time.Duration:
			fs.DurationVarP(destP, o.flag, o.short, o.dflt.(time.Duration), o.desc)
		case *zapcore.Level:
			levelVarP(fs, destP, o.flag, o.short, o.dflt.(zapcore.Level), o.desc)
		default:
			panic(fmt.Errorf("unknown destination type %T", o.destP))
		}
		if err := v.BindPFlag(o.flag, fs.Lookup(o.flag)); err != nil {
			panic(err)
		}
	}
}

// load resolves every option from flags, the environment and the config
// file, in that order of precedence.
func (c *config) load(v *viper.Viper) error {
	c.ConfigFile = v.GetString("config")
	if c.ConfigFile != "" {
		v.SetConfigFile(c.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "reading config %s", c.ConfigFile)
		}
	}

	c.NoOptimize = v.GetBool("no-optimize")
	c.TapeSize = v.GetInt("tape-size")
	c.Timeout = v.GetDuration("timeout")
	c.LogFormat = v.GetString("log-format")
	c.Verbose = v.GetBool("verbose")
	if err := (*levelValue)(&c.LogLevel).Set(v.GetString("log-level")); err != nil {
		return err
	}

	switch c.LogFormat {
	case logFormatConsole, logFormatLogfmt:
	default:
		return errors.Errorf("unknown log format %q; supported formats are %s, %s", c.LogFormat, logFormatConsole, logFormatLogfmt)
	}
	if c.Timeout < 0 {
		return errors.Errorf("invalid timeout %s", c.Timeout)
	}
	if c.Verbose {
		c.LogLevel = zapcore.DebugLevel
	}
	return nil
}
