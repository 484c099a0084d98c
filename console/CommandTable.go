package console

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/c-bata/go-prompt"
	"golang.org/x/exp/slices"
)

// CommandDefinition describes one console command.
type CommandDefinition struct {
	Name              string                                                              // primary name
	Aliases           []string                                                            // alternate names
	Summary           string                                                              // one-line summary
	Syntax            string                                                              // usage line
	Description       []string                                                            // detail lines, one element per line
	ParseFunc         func(p CommandParser, parts []string, debug bool) (*Command, error) // argument parser
	GetCandidatesFunc func(dir *SensorDirectory, d prompt.Document) []prompt.Suggest      // completion candidates
}

// CommandTable holds every console command.
// Keep README.md in sync when the usage of a command changes.
// Assigned in init because the help entry references
// getCommandNameCandidates, which walks CommandTable; a direct
// initializer would be an initialization cycle.
var CommandTable []CommandDefinition

func init() {
	CommandTable = []CommandDefinition{
		{
			Name:    "sensors",
			Aliases: []string{"list"},
			Summary: "list sensors with current readings",
			Syntax:  "sensors, list",
			Description: []string{
				"Walks the SDR repository and prints one line per threshold sensor",
				"with its converted reading, unit and threshold state.",
			},
			ParseFunc: func(p CommandParser, parts []string, debug bool) (*Command, error) {
				return newCommand(CmdSensors), nil
			},
		},
		{
			Name:    "sensor",
			Aliases: []string{"get"},
			Summary: "read one sensor",
			Syntax:  "sensor, get <sensor>",
			Description: []string{
				"sensor: sensor number (decimal or 0x hex)",
				"Prints the raw reading byte, the converted value and the event",
				"state flags returned by Get Sensor Reading.",
			},
			GetCandidatesFunc: func(dir *SensorDirectory, d prompt.Document) []prompt.Suggest {
				return getSensorCandidates(dir)
			},
			ParseFunc: func(p CommandParser, parts []string, debug bool) (*Command, error) {
				if len(parts) != 2 {
					return nil, fmt.Errorf("usage: sensor <sensor>")
				}
				num, err := p.parseSensorNumber(parts[1])
				if err != nil {
					return nil, err
				}
				cmd := newCommand(CmdSensor)
				cmd.SensorNum = &num
				return cmd, nil
			},
		},
		{
			Name:    "thresholds",
			Summary: "show the thresholds of a sensor",
			Syntax:  "thresholds <sensor>",
			Description: []string{
				"sensor: sensor number (decimal or 0x hex)",
				"Prints each readable threshold in raw and engineering units.",
			},
			GetCandidatesFunc: func(dir *SensorDirectory, d prompt.Document) []prompt.Suggest {
				return getSensorCandidates(dir)
			},
			ParseFunc: func(p CommandParser, parts []string, debug bool) (*Command, error) {
				if len(parts) != 2 {
					return nil, fmt.Errorf("usage: thresholds <sensor>")
				}
				num, err := p.parseSensorNumber(parts[1])
				if err != nil {
					return nil, err
				}
				cmd := newCommand(CmdThresholds)
				cmd.SensorNum = &num
				return cmd, nil
			},
		},
		{
			Name:    "threshold",
			Aliases: []string{"set"},
			Summary: "set one threshold of a sensor",
			Syntax:  "threshold, set <sensor> <lnc|lc|unc|uc> <value>",
			Description: []string{
				"sensor: sensor number (decimal or 0x hex)",
				"lnc, lc: lower non-critical, lower critical",
				"unc, uc: upper non-critical, upper critical",
				"value: threshold in engineering units (e.g. 85 or 1.14)",
				"The value is converted to a raw byte with the sensor's conversion",
				"factors, so the sensor must appear in a previous 'sensors' walk.",
			},
			GetCandidatesFunc: func(dir *SensorDirectory, d prompt.Document) []prompt.Suggest {
				words := splitWords(d.TextBeforeCursor())
				switch len(words) {
				case 2:
					return getSensorCandidates(dir)
				case 3:
					return getThresholdNameCandidates()
				}
				return []prompt.Suggest{}
			},
			ParseFunc: func(p CommandParser, parts []string, debug bool) (*Command, error) {
				if len(parts) != 4 {
					return nil, fmt.Errorf("usage: threshold <sensor> <lnc|lc|unc|uc> <value>")
				}
				num, err := p.parseSensorNumber(parts[1])
				if err != nil {
					return nil, err
				}
				bit, index, err := p.parseThresholdName(parts[2])
				if err != nil {
					return nil, err
				}
				value, err := strconv.ParseFloat(parts[3], 64)
				if err != nil {
					return nil, fmt.Errorf("invalid threshold value: %s", parts[3])
				}
				cmd := newCommand(CmdThresholdSet)
				cmd.SensorNum = &num
				cmd.ThresholdMask = bit
				cmd.ThresholdIndex = index
				cmd.ThresholdValue = value
				return cmd, nil
			},
		},
		{
			Name:    "events",
			Summary: "show the event state of a sensor",
			Syntax:  "events <sensor>",
			Description: []string{
				"sensor: sensor number (decimal or 0x hex)",
				"Prints the event enable masks and the asserted/deasserted",
				"threshold event bits.",
			},
			GetCandidatesFunc: func(dir *SensorDirectory, d prompt.Document) []prompt.Suggest {
				return getSensorCandidates(dir)
			},
			ParseFunc: func(p CommandParser, parts []string, debug bool) (*Command, error) {
				if len(parts) != 2 {
					return nil, fmt.Errorf("usage: events <sensor>")
				}
				num, err := p.parseSensorNumber(parts[1])
				if err != nil {
					return nil, err
				}
				cmd := newCommand(CmdEvents)
				cmd.SensorNum = &num
				return cmd, nil
			},
		},
		{
			Name:    "event",
			Summary: "send a platform event message",
			Syntax:  "event <byte> <byte> ... (5-8 hex bytes)",
			Description: []string{
				"Sends the bytes as a Platform Event request, either",
				"[evmrev type sensor eventtype data1 [data2 [data3]]] or the same",
				"with a leading generator ID byte.",
				"Example: event 04 01 05 01 07",
			},
			ParseFunc: func(p CommandParser, parts []string, debug bool) (*Command, error) {
				if len(parts) < 6 || len(parts) > 9 {
					return nil, fmt.Errorf("usage: event <byte> <byte> ... (5-8 hex bytes)")
				}
				data, err := p.parseHexBytes(parts[1:])
				if err != nil {
					return nil, err
				}
				cmd := newCommand(CmdEvent)
				cmd.EventData = data
				return cmd, nil
			},
		},
		{
			Name:    "sdr",
			Summary: "inspect the SDR repository",
			Syntax:  "sdr [info|list|dump <record>]",
			Description: []string{
				"info: print the repository and allocation info",
				"list: list every record with its type and name (default)",
				"dump <record>: hex dump one record (record ID, decimal or 0x hex)",
			},
			GetCandidatesFunc: func(dir *SensorDirectory, d prompt.Document) []prompt.Suggest {
				words := splitWords(d.TextBeforeCursor())
				if len(words) == 2 {
					return []prompt.Suggest{
						{Text: SDRInfo, Description: "repository and allocation info"},
						{Text: SDRList, Description: "list all records"},
						{Text: SDRDump, Description: "hex dump one record"},
					}
				}
				return []prompt.Suggest{}
			},
			ParseFunc: func(p CommandParser, parts []string, debug bool) (*Command, error) {
				cmd := newCommand(CmdSDR)
				if len(parts) == 1 {
					cmd.SDRMode = SDRList
					return cmd, nil
				}
				switch parts[1] {
				case SDRInfo, SDRList:
					if len(parts) != 2 {
						return nil, fmt.Errorf("usage: sdr %s", parts[1])
					}
					cmd.SDRMode = parts[1]
				case SDRDump:
					if len(parts) != 3 {
						return nil, fmt.Errorf("usage: sdr dump <record>")
					}
					id, err := strconv.ParseUint(parts[2], 0, 16)
					if err != nil {
						return nil, fmt.Errorf("invalid record ID: %s", parts[2])
					}
					recordID := uint16(id)
					cmd.SDRMode = SDRDump
					cmd.RecordID = &recordID
				default:
					return nil, fmt.Errorf("unknown sdr subcommand: %s", parts[1])
				}
				return cmd, nil
			},
		},
		{
			Name:    "fru",
			Summary: "list FRU device locator records",
			Syntax:  "fru",
			Description: []string{
				"Lists the FRU device locator records from the SDR repository.",
			},
			ParseFunc: func(p CommandParser, parts []string, debug bool) (*Command, error) {
				return newCommand(CmdFRU), nil
			},
		},
		{
			Name:    "raw",
			Summary: "send a raw command",
			Syntax:  "raw <netfn> <cmd> [data...]",
			Description: []string{
				"netfn, cmd, data: hex bytes (e.g. raw 04 2d 05)",
				"Prints the completion code and the raw response bytes.",
			},
			ParseFunc: func(p CommandParser, parts []string, debug bool) (*Command, error) {
				if len(parts) < 3 {
					return nil, fmt.Errorf("usage: raw <netfn> <cmd> [data...]")
				}
				netfn, err := p.parseHexByte(parts[1])
				if err != nil {
					return nil, err
				}
				cmdByte, err := p.parseHexByte(parts[2])
				if err != nil {
					return nil, err
				}
				data, err := p.parseHexBytes(parts[3:])
				if err != nil {
					return nil, err
				}
				cmd := newCommand(CmdRaw)
				cmd.NetFn = &netfn
				cmd.Cmd = &cmdByte
				cmd.Data = data
				return cmd, nil
			},
		},
		{
			Name:    "debug",
			Summary: "show or toggle debug mode",
			Syntax:  "debug [on|off]",
			Description: []string{
				"No argument: show the current debug mode",
				"on: enable debug output",
				"off: disable debug output",
			},
			GetCandidatesFunc: func(dir *SensorDirectory, d prompt.Document) []prompt.Suggest {
				words := splitWords(d.TextBeforeCursor())
				if len(words) == 2 {
					return []prompt.Suggest{
						{Text: "on", Description: "enable debug output"},
						{Text: "off", Description: "disable debug output"},
					}
				}
				return []prompt.Suggest{}
			},
			ParseFunc: func(p CommandParser, parts []string, debug bool) (*Command, error) {
				cmd := newCommand(CmdDebug)

				if len(parts) == 1 {
					return cmd, nil
				}

				if len(parts) != 2 || (parts[1] != "on" && parts[1] != "off") {
					return nil, fmt.Errorf("debug takes 'on' or 'off'")
				}
				value := parts[1]
				cmd.DebugMode = &value

				return cmd, nil
			},
		},
		{
			Name:    "help",
			Summary: "show help",
			Syntax:  "help [command]",
			Description: []string{
				"No argument: show the summary of every command",
				"command: show the details of that command",
			},
			GetCandidatesFunc: func(dir *SensorDirectory, d prompt.Document) []prompt.Suggest {
				words := splitWords(d.TextBeforeCursor())
				if len(words) == 2 {
					return getCommandNameCandidates()
				}
				return []prompt.Suggest{}
			},
			ParseFunc: func(p CommandParser, parts []string, debug bool) (*Command, error) {
				cmd := newCommand(CmdHelp)

				if len(parts) > 1 {
					cmd.HelpTopic = &parts[1]
				}

				return cmd, nil
			},
		},
		{
			Name:    "quit",
			Aliases: []string{"exit"},
			Summary: "quit",
			Syntax:  "quit, exit",
			Description: []string{
				"Quits the console.",
			},
			ParseFunc: func(p CommandParser, parts []string, debug bool) (*Command, error) {
				return newCommand(CmdQuit), nil
			},
		},
	}
}

// PrintCommandSummary prints the one-line summary of every command.
func PrintCommandSummary() {
	fmt.Println("Commands:")

	for _, cmd := range CommandTable {
		aliases := ""
		if len(cmd.Aliases) > 0 {
			aliases = fmt.Sprintf(", %s", strings.Join(cmd.Aliases, ", "))
		}
		fmt.Printf("  %-10s: %s\n", cmd.Name+aliases, cmd.Summary)
	}

	fmt.Println("")
	fmt.Println("Use 'help <command>' for details. Example: 'help threshold'")
}

// PrintCommandDetail prints the detailed help of one command.
func PrintCommandDetail(commandName string) {
	for _, cmd := range CommandTable {
		if cmd.Name == commandName || slices.Contains(cmd.Aliases, commandName) {
			fmt.Printf("  %s: %s\n", cmd.Name, cmd.Summary)
			fmt.Printf("  usage: %s\n", cmd.Syntax)

			if len(cmd.Description) > 0 {
				fmt.Println("  details:")
				for _, line := range cmd.Description {
					fmt.Printf("    %s\n", line)
				}
			}
			return
		}
	}

	fmt.Printf("unknown command: %s\n", commandName)
	fmt.Println("Type 'help' to list the available commands")
}

// PrintUsage prints the command summary, or one command's details.
func PrintUsage(commandName *string) {
	if commandName == nil {
		fmt.Println("IPMI sensor console")
		PrintCommandSummary()
	} else {
		PrintCommandDetail(*commandName)
	}
}
