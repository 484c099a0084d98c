// Package console implements the interactive operator console. Input lines
// are parsed into commands, executed against the bridge client and printed,
// with completion fed from the last repository walk.
package console

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/vb15s/intel-ipmi-oem/ipmi"
)

// CommandType identifies a console command.
type CommandType int

const (
	CmdUnknown CommandType = iota
	CmdQuit
	CmdHelp
	CmdSensors
	CmdSensor
	CmdThresholds
	CmdThresholdSet
	CmdEvents
	CmdEvent
	CmdSDR
	CmdFRU
	CmdRaw
	CmdDebug
)

// SDR subcommand selectors.
const (
	SDRInfo = "info"
	SDRList = "list"
	SDRDump = "dump"
)

// Command is one parsed console command.
type Command struct {
	Type CommandType

	SensorNum *byte // sensor, thresholds, events, sdr dump

	ThresholdMask  byte    // threshold set: selected threshold bit
	ThresholdIndex int     // threshold set: position in the value block
	ThresholdValue float64 // threshold set: value in engineering units

	EventData []byte // event: platform event request bytes

	NetFn *byte  // raw
	Cmd   *byte  // raw
	Data  []byte // raw

	SDRMode  string  // sdr: info, list or dump
	RecordID *uint16 // sdr dump

	HelpTopic *string // help
	DebugMode *string // debug: "on" or "off"

	Done  chan struct{} // closed when the command has been executed
	Error error         // execution error, valid after Done is closed
}

// newCommand creates a command of the given type with its Done channel.
func newCommand(cmdType CommandType) *Command {
	return &Command{
		Type: cmdType,
		Done: make(chan struct{}),
	}
}

// CommandParser parses command arguments. It carries no state; the type
// exists so the command table's parse functions share helper methods.
type CommandParser struct{}

// parseSensorNumber accepts a decimal or 0x-prefixed sensor number.
func (p CommandParser) parseSensorNumber(s string) (byte, error) {
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid sensor number: %s (use decimal or 0x hex, 0-255)", s)
	}
	return byte(n), nil
}

// parseHexByte parses one two-digit hex byte without a prefix.
func (p CommandParser) parseHexByte(s string) (byte, error) {
	n, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid byte: %s (use two hex digits)", s)
	}
	return byte(n), nil
}

// parseHexBytes parses a run of hex byte tokens.
func (p CommandParser) parseHexBytes(parts []string) ([]byte, error) {
	data := make([]byte, 0, len(parts))
	for _, part := range parts {
		b, err := p.parseHexByte(part)
		if err != nil {
			return nil, err
		}
		data = append(data, b)
	}
	return data, nil
}

// thresholdNames maps the console threshold names to the selection bit and
// the position in the Set Sensor Thresholds value block.
var thresholdNames = map[string]struct {
	bit   byte
	index int
}{
	"lnc": {ipmi.ThresholdBitLowerNonCritical, 0},
	"lc":  {ipmi.ThresholdBitLowerCritical, 1},
	"unc": {ipmi.ThresholdBitUpperNonCritical, 3},
	"uc":  {ipmi.ThresholdBitUpperCritical, 4},
}

// parseThresholdName resolves a threshold name to its selection bit and
// value block index.
func (p CommandParser) parseThresholdName(s string) (byte, int, error) {
	entry, ok := thresholdNames[strings.ToLower(s)]
	if !ok {
		return 0, 0, fmt.Errorf("unknown threshold: %s (use lnc, lc, unc or uc)", s)
	}
	return entry.bit, entry.index, nil
}

// ParseCommand parses one input line. An empty line yields a nil command.
func (p CommandParser) ParseCommand(input string, debug bool) (*Command, error) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil, nil
	}

	commandName := parts[0]

	for _, cmdDef := range CommandTable {
		if cmdDef.Name == commandName || slices.Contains(cmdDef.Aliases, commandName) {
			if cmdDef.ParseFunc != nil {
				return cmdDef.ParseFunc(p, parts, debug)
			}
			return newCommand(CmdUnknown), nil
		}
	}

	return nil, fmt.Errorf("unknown command: %s", commandName)
}
