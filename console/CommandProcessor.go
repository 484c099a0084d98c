package console

import (
	"context"
	"fmt"
	"time"

	"github.com/vb15s/intel-ipmi-oem/client"
	"github.com/vb15s/intel-ipmi-oem/ipmi"
)

// CommandProcessor executes parsed commands against the bridge client, one
// at a time, on its own goroutine.
type CommandProcessor struct {
	client  *client.WebSocketClient
	dir     *SensorDirectory
	cmdChan chan *Command
	done    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewCommandProcessor creates a CommandProcessor. The directory is shared
// with the completer and updated on every repository walk.
func NewCommandProcessor(ctx context.Context, c *client.WebSocketClient, dir *SensorDirectory) *CommandProcessor {
	processorCtx, cancel := context.WithCancel(ctx)

	return &CommandProcessor{
		client:  c,
		dir:     dir,
		cmdChan: make(chan *Command),
		done:    make(chan struct{}),
		ctx:     processorCtx,
		cancel:  cancel,
	}
}

// Start begins command processing.
func (p *CommandProcessor) Start() {
	go p.processCommands()
}

// Stop ends command processing and waits for the goroutine to exit.
func (p *CommandProcessor) Stop() {
	if p.cancel != nil {
		p.cancel()
	}

	select {
	case <-p.done:
		// processing already ended
		return
	default:
		close(p.cmdChan)
		<-p.done
	}
}

// SendCommand submits a command, waits for it to finish and returns its
// execution error.
func (p *CommandProcessor) SendCommand(cmd *Command) error {
	p.cmdChan <- cmd
	<-cmd.Done
	return cmd.Error
}

func (p *CommandProcessor) processCommands() {
	defer close(p.done)

	for cmd := range p.cmdChan {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		switch cmd.Type {
		case CmdQuit:
			close(cmd.Done)
			return
		case CmdHelp:
			PrintUsage(cmd.HelpTopic)
		case CmdSensors:
			cmd.Error = p.processSensorsCommand(cmd)
		case CmdSensor:
			cmd.Error = p.processSensorCommand(cmd)
		case CmdThresholds:
			cmd.Error = p.processThresholdsCommand(cmd)
		case CmdThresholdSet:
			cmd.Error = p.processThresholdSetCommand(cmd)
		case CmdEvents:
			cmd.Error = p.processEventsCommand(cmd)
		case CmdEvent:
			cmd.Error = p.processEventCommand(cmd)
		case CmdSDR:
			cmd.Error = p.processSDRCommand(cmd)
		case CmdFRU:
			cmd.Error = p.processFRUCommand(cmd)
		case CmdRaw:
			cmd.Error = p.processRawCommand(cmd)
		case CmdDebug:
			cmd.Error = p.processDebugCommand(cmd)
		default:
			panic("unhandled default case")
		}

		// signal completion for every command except quit
		close(cmd.Done)
	}
}

// thresholdStatus renders the comparison bits of a reading.
func thresholdStatus(bits byte) string {
	switch {
	case bits&(ipmi.ThresholdBitLowerCritical|ipmi.ThresholdBitUpperCritical) != 0:
		return "critical"
	case bits&(ipmi.ThresholdBitLowerNonCritical|ipmi.ThresholdBitUpperNonCritical) != 0:
		return "warning"
	default:
		return "ok"
	}
}

func formatEnabled(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func formatTimestamp(ts uint32) string {
	if ts == 0 {
		return "never"
	}
	return time.Unix(int64(ts), 0).UTC().Format(time.RFC3339)
}

func (p *CommandProcessor) processSensorsCommand(cmd *Command) error {
	entries, err := p.client.WalkSDRs()
	if err != nil {
		return err
	}
	p.dir.Update(entries)

	count := 0
	for _, entry := range entries {
		if entry.Full == nil {
			continue
		}
		p.printSensorLine(entry.Full)
		count++
	}
	if count == 0 {
		fmt.Println("no sensors")
	}
	return nil
}

func (p *CommandProcessor) printSensorLine(record *ipmi.FullSensorRecord) {
	reading, err := p.client.GetSensorReading(record.SensorNumber)
	if err != nil {
		fmt.Printf("  %3d %-20s %v\n", record.SensorNumber, record.Name, err)
		return
	}
	if !reading.ScanningEnabled {
		fmt.Printf("  %3d %-20s (scanning disabled)\n", record.SensorNumber, record.Name)
		return
	}
	value := record.Factors.DecodeReading(reading.Reading)
	fmt.Printf("  %3d %-20s %10.3f %-10s %s\n",
		record.SensorNumber, record.Name, value, record.Unit, thresholdStatus(reading.ThresholdBits))
}

func (p *CommandProcessor) processSensorCommand(cmd *Command) error {
	reading, err := p.client.GetSensorReading(*cmd.SensorNum)
	if err != nil {
		return err
	}

	fmt.Printf("sensor %d:\n", *cmd.SensorNum)
	if record := p.dir.Full(*cmd.SensorNum); record != nil {
		fmt.Printf("  name: %s\n", record.Name)
		value := record.Factors.DecodeReading(reading.Reading)
		fmt.Printf("  reading: %.3f %s (raw 0x%02X)\n", value, record.Unit, reading.Reading)
	} else {
		fmt.Printf("  reading: raw 0x%02X (run 'sensors' to resolve name and unit)\n", reading.Reading)
	}
	fmt.Printf("  event messages: %s\n", formatEnabled(reading.EventMessagesEnabled))
	fmt.Printf("  scanning: %s\n", formatEnabled(reading.ScanningEnabled))
	fmt.Printf("  status: %s\n", thresholdStatus(reading.ThresholdBits))
	return nil
}

func (p *CommandProcessor) processThresholdsCommand(cmd *Command) error {
	thresholds, err := p.client.GetSensorThresholds(*cmd.SensorNum)
	if err != nil {
		return err
	}

	record := p.dir.Full(*cmd.SensorNum)
	printOne := func(name string, raw *byte) {
		if raw == nil {
			fmt.Printf("  %-4s not readable\n", name)
			return
		}
		if record != nil {
			fmt.Printf("  %-4s %10.3f %s (raw 0x%02X)\n",
				name, record.Factors.DecodeReading(*raw), record.Unit, *raw)
		} else {
			fmt.Printf("  %-4s raw 0x%02X\n", name, *raw)
		}
	}

	fmt.Printf("sensor %d thresholds:\n", *cmd.SensorNum)
	printOne("lnc", thresholds.LowerNonCritical)
	printOne("lc", thresholds.LowerCritical)
	printOne("unc", thresholds.UpperNonCritical)
	printOne("uc", thresholds.UpperCritical)
	return nil
}

func (p *CommandProcessor) processThresholdSetCommand(cmd *Command) error {
	record := p.dir.Full(*cmd.SensorNum)
	if record == nil {
		return fmt.Errorf("sensor %d is not in the last 'sensors' listing (run 'sensors' first)", *cmd.SensorNum)
	}

	raw := record.Factors.EncodeReading(cmd.ThresholdValue)
	var values [6]byte
	values[cmd.ThresholdIndex] = raw

	if err := p.client.SetSensorThresholds(*cmd.SensorNum, cmd.ThresholdMask, values); err != nil {
		return err
	}
	// report the value after raw quantization, not the one typed
	fmt.Printf("sensor %d: threshold set to %.3f %s (raw 0x%02X)\n",
		*cmd.SensorNum, record.Factors.DecodeReading(raw), record.Unit, raw)
	return nil
}

func (p *CommandProcessor) processEventsCommand(cmd *Command) error {
	enable, err := p.client.GetSensorEventEnable(*cmd.SensorNum)
	if err != nil {
		return err
	}
	status, err := p.client.GetSensorEventStatus(*cmd.SensorNum)
	if err != nil {
		return err
	}

	fmt.Printf("sensor %d events:\n", *cmd.SensorNum)
	fmt.Printf("  event messages: %s\n", formatEnabled(enable.EventMessagesEnabled))
	fmt.Printf("  scanning: %s\n", formatEnabled(enable.ScanningEnabled))
	fmt.Printf("  assertion mask: 0x%04X\n", enable.AssertionMask)
	fmt.Printf("  deassertion mask: 0x%04X\n", enable.DeassertionMask)
	fmt.Printf("  asserted: 0x%04X\n", status.Asserted)
	fmt.Printf("  deasserted: 0x%04X\n", status.Deasserted)
	return nil
}

func (p *CommandProcessor) processEventCommand(cmd *Command) error {
	if err := p.client.SendPlatformEvent(cmd.EventData); err != nil {
		return err
	}
	fmt.Println("event accepted")
	return nil
}

func (p *CommandProcessor) processSDRCommand(cmd *Command) error {
	switch cmd.SDRMode {
	case SDRInfo:
		return p.processSDRInfo()
	case SDRDump:
		return p.processSDRDump(*cmd.RecordID)
	default:
		return p.processSDRList()
	}
}

func (p *CommandProcessor) processSDRInfo() error {
	info, err := p.client.GetSDRRepositoryInfo()
	if err != nil {
		return err
	}
	alloc, err := p.client.GetSDRAllocationInfo()
	if err != nil {
		return err
	}

	fmt.Printf("SDR version: %d.%d\n", info.Version&0x0F, info.Version>>4)
	fmt.Printf("records: %d\n", info.RecordCount)
	fmt.Printf("free space: 0x%04X\n", info.FreeSpace)
	fmt.Printf("last addition: %s\n", formatTimestamp(info.LastAdd))
	fmt.Printf("last erase: %s\n", formatTimestamp(info.LastErase))
	fmt.Printf("operations: 0x%02X\n", info.Operations)
	fmt.Printf("allocation: %d units of %d bytes, max record %d bytes\n",
		alloc.AllocationUnits, alloc.UnitSize, alloc.MaxRecordSize)
	return nil
}

func (p *CommandProcessor) processSDRList() error {
	entries, err := p.client.WalkSDRs()
	if err != nil {
		return err
	}
	p.dir.Update(entries)

	for _, entry := range entries {
		name := ""
		kind := fmt.Sprintf("type 0x%02X", entry.Type)
		switch {
		case entry.Full != nil:
			name = entry.Full.Name
			kind = "full sensor"
		case entry.FRU != nil:
			name = entry.FRU.Name
			kind = "fru locator"
		}
		fmt.Printf("  %04X %-12s %3d bytes  %s\n", entry.RecordID, kind, len(entry.Raw), name)
	}
	fmt.Printf("%d records\n", len(entries))
	return nil
}

func (p *CommandProcessor) processSDRDump(recordID uint16) error {
	record, err := p.client.ReadSDR(recordID)
	if err != nil {
		return err
	}

	fmt.Printf("record %04X (%d bytes):\n", recordID, len(record))
	for offset := 0; offset < len(record); offset += 16 {
		end := offset + 16
		if end > len(record) {
			end = len(record)
		}
		fmt.Printf("  %04X: % X\n", offset, record[offset:end])
	}
	return nil
}

func (p *CommandProcessor) processFRUCommand(cmd *Command) error {
	entries, err := p.client.WalkSDRs()
	if err != nil {
		return err
	}
	p.dir.Update(entries)

	count := 0
	for _, entry := range entries {
		if entry.FRU == nil {
			continue
		}
		fru := entry.FRU
		fmt.Printf("  fru %d at 0x%02X: %s (entity %d.%d)\n",
			fru.FRUID, fru.DeviceAddress, fru.Name, fru.EntityID, fru.EntityInstance)
		count++
	}
	if count == 0 {
		fmt.Println("no FRU device locator records")
	}
	return nil
}

func (p *CommandProcessor) processRawCommand(cmd *Command) error {
	req := ipmi.Request{
		NetFn: ipmi.NetFn(*cmd.NetFn),
		Cmd:   ipmi.Command(*cmd.Cmd),
		Data:  cmd.Data,
	}
	resp, err := p.client.Execute(req)
	if err != nil {
		return err
	}

	fmt.Printf("completion code: 0x%02X (%s)\n", byte(resp.Code), resp.Code)
	if len(resp.Data) > 0 {
		fmt.Printf("data: % X\n", resp.Data)
	}
	return nil
}

func (p *CommandProcessor) processDebugCommand(cmd *Command) error {
	if cmd.DebugMode != nil {
		debugMode := *cmd.DebugMode == "on"
		p.client.SetDebug(debugMode)
		if debugMode {
			fmt.Println("debug mode enabled")
		} else {
			fmt.Println("debug mode disabled")
		}
	} else {
		if p.client.IsDebug() {
			fmt.Println("debug mode: enabled")
		} else {
			fmt.Println("debug mode: disabled")
		}
	}
	return nil
}
