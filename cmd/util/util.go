package util

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/g02flow/aosdb/lib/aos"
	"github.com/g02flow/aosdb/lib/common"
	"github.com/g02flow/aosdb/lib/nvs"
	"github.com/g02flow/aosdb/lib/records"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var Logger = logger.GetLogger("cmd")

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// SetupStoreFlags adds the flags selecting and configuring the partition to a command
func SetupStoreFlags(cmd *cobra.Command) {
	key := "data-dir"
	cmd.PersistentFlags().String(key, "data", WrapString("Directory holding the partition files"))

	key = "partition"
	cmd.PersistentFlags().String(key, records.DefaultPartition, WrapString("Name of the partition holding the record tables (at most 15 characters)"))

	key = "partition-size"
	cmd.PersistentFlags().Int64(key, nvs.DefaultPartitionSize, WrapString("Size of the partition in bytes. Capacity is accounted in 4096 byte pages of 126 entries, one page is kept free"))

	key = "encrypt"
	cmd.PersistentFlags().Bool(key, false, WrapString("Encrypt the partition at rest (AES-256-GCM). Must match the setting the partition was created with"))

	key = "passphrase"
	cmd.PersistentFlags().String(key, "", WrapString("Passphrase for an encrypted partition. Prompted for if empty and stdin is a terminal"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// InitConfig initializes configuration from env files and environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("aosdb")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// LoadConfig reads the node configuration from viper, asks for a missing
// passphrase and configures the loggers.
func LoadConfig() (*common.NodeConfig, error) {
	conf := &common.NodeConfig{
		DataDir:       viper.GetString("data-dir"),
		Partition:     viper.GetString("partition"),
		PartitionSize: viper.GetInt64("partition-size"),
		Encrypt:       viper.GetBool("encrypt"),
		Passphrase:    viper.GetString("passphrase"),
		LogLevel:      viper.GetString("log-level"),
	}

	if conf.Encrypt && conf.Passphrase == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		passphrase, err := ReadPassphrase("Passphrase: ")
		if err != nil {
			return nil, fmt.Errorf("reading passphrase: %w", err)
		}
		conf.Passphrase = passphrase
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if err := common.InitLoggers(conf.LogLevel); err != nil {
		return nil, err
	}

	Logger.Debugf("configuration:%s", conf)
	return conf, nil
}

// ReadPassphrase reads a passphrase from the terminal without echoing it.
func ReadPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	passphrase, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(passphrase), nil
}

// --------------------------------------------------------------------------
// Store
// --------------------------------------------------------------------------

// Store bundles everything a command needs to work on the record tables.
type Store struct {
	Config *common.NodeConfig
	Flash  *nvs.Flash
	Engine *aos.Engine
	Tables *records.Tables
	Boot   *records.BootCounter
}

// OpenStore mounts the configured partition and installs the node's tables.
func OpenStore(conf *common.NodeConfig) (*Store, error) {
	flash := nvs.NewFlash(conf.FlashOptions())
	engine, tables, err := records.OpenEngine(flash, conf.Partition)
	if err != nil {
		_ = flash.Close()
		return nil, fmt.Errorf("opening partition %s in %s: %w", conf.Partition, conf.DataDir, err)
	}

	return &Store{
		Config: conf,
		Flash:  flash,
		Engine: engine,
		Tables: tables,
		Boot:   records.NewBootCounter(flash, conf.Partition),
	}, nil
}

// OpenCommandStore binds the flags of cmd, loads the configuration and
// opens the store it selects.
func OpenCommandStore(cmd *cobra.Command) (*Store, error) {
	if err := BindCommandFlags(cmd); err != nil {
		return nil, err
	}
	conf, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return OpenStore(conf)
}

// Close closes the engine and unmounts the partition.
func (s *Store) Close() error {
	return errors.Join(s.Engine.Close(), s.Flash.Close())
}

// --------------------------------------------------------------------------
// Argument parsing
// --------------------------------------------------------------------------

// ParseKey parses a record key (0..65535).
func ParseKey(arg string) (aos.Key, error) {
	v, err := strconv.ParseUint(arg, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("key must be a number between 0 and 65535: %s", arg)
	}
	return aos.Key(v), nil
}

// ParseInt32 parses a signed 32 bit record field.
func ParseInt32(name, arg string) (int32, error) {
	v, err := strconv.ParseInt(arg, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%s must be a 32 bit number: %s", name, arg)
	}
	return int32(v), nil
}

// ParseUint16 parses an unsigned 16 bit record field.
func ParseUint16(name, arg string) (uint16, error) {
	v, err := strconv.ParseUint(arg, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number between 0 and 65535: %s", name, arg)
	}
	return uint16(v), nil
}
