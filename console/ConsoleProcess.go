package console

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/c-bata/go-prompt"
	"golang.org/x/exp/slices"
	"golang.org/x/term"

	"github.com/vb15s/intel-ipmi-oem/client"
	"github.com/vb15s/intel-ipmi-oem/ipmi"
	"github.com/vb15s/intel-ipmi-oem/protocol"
)

// RunConsole runs the interactive prompt until quit or EOF. Stdin must be a
// terminal; the prompt takes it into raw mode.
func RunConsole(ctx context.Context, c *client.WebSocketClient) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("stdin is not a terminal")
	}

	dir := NewSensorDirectory()
	processor := NewCommandProcessor(ctx, c, dir)
	processor.Start()

	fmt.Println("help for usage, quit to exit")

	go printNotifications(ctx, c)

	quitting := false
	parser := CommandParser{}

	executor := func(line string) {
		cmd, err := parser.ParseCommand(line, c.IsDebug())
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		if cmd == nil {
			return
		}

		if cmd.Type == CmdQuit {
			// quit bypasses the command channel so Stop can drain it
			close(cmd.Done)
			processor.Stop()
			quitting = true
			return
		}

		if err := processor.SendCommand(cmd); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}

	completer := func(d prompt.Document) []prompt.Suggest {
		words := splitWords(d.TextBeforeCursor())
		if len(words) <= 1 {
			return prompt.FilterHasPrefix(getCommandNameCandidates(), d.GetWordBeforeCursor(), true)
		}

		commandName := words[0]
		for _, cmdDef := range CommandTable {
			if cmdDef.Name == commandName || slices.Contains(cmdDef.Aliases, commandName) {
				if cmdDef.GetCandidatesFunc != nil {
					candidates := cmdDef.GetCandidatesFunc(dir, d)
					return prompt.FilterHasPrefix(candidates, d.GetWordBeforeCursor(), true)
				}
				break
			}
		}
		return []prompt.Suggest{}
	}

	p := prompt.New(
		executor,
		completer,
		prompt.OptionPrefix("ipmi> "),
		prompt.OptionSetExitCheckerOnInput(func(in string, breakline bool) bool {
			return quitting
		}),
	)
	p.Run()

	// covers the EOF exit path; after quit this returns immediately
	processor.Stop()
	return nil
}

// printNotifications prints server-pushed sensor events between prompts.
func printNotifications(ctx context.Context, c *client.WebSocketClient) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-c.NotificationCh:
			if !ok {
				return
			}
			switch n.Kind {
			case protocol.NotificationKindThreshold:
				state := "deasserted"
				if n.Asserted {
					state = "asserted"
				}
				name := strings.TrimPrefix(n.Path, ipmi.SensorPathPrefix)
				fmt.Printf("\n[event] %s: %s %s\n", name, n.Alarm, state)
			case protocol.NotificationKindTopology:
				fmt.Printf("\n[event] sensor topology changed, 'sensors' to refresh\n")
			}
		}
	}
}
