// Package cli parses the mojify command line.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandListen   Command = "listen"
	CommandDownload Command = "download"
	CommandList     Command = "list"
	CommandStatus   Command = "status"
	CommandDoctor   Command = "doctor"
	CommandVersion  Command = "version"
	CommandHelp     Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandListen:   {},
	CommandDownload: {},
	CommandList:     {},
	CommandStatus:   {},
	CommandDoctor:   {},
	CommandVersion:  {},
	CommandHelp:     {},
}

// aliases maps legacy switch spellings onto commands.
var aliases = map[string]Command{
	"-download":  CommandDownload,
	"--download": CommandDownload,
}

type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool
}

// Parse reads global flags followed by at most one command. No command means listen.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandListen}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if cmd, ok := aliases[arg]; ok {
			parsed.Command = cmd
			parsed.ShowHelp = false
			if i != len(args)-1 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
			continue
		}

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if value, ok := strings.CutPrefix(arg, "--config="); ok {
				if value == "" {
					return Parsed{}, errors.New("--config requires a path")
				}
				parsed.ConfigPath = value
				continue
			}
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			if i != len(args)-1 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
		}
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [command]

Commands:
  listen    Watch typed input and replace emote triggers (default)
  download  Fetch channel emotes from 7TV and update the mapping file
  list      Print the trigger mapping
  status    Print the state of the running listener
  doctor    Run configuration and environment checks
  version   Print version information
  help      Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/mojify/mojify.env)
  -download       Same as the download command
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
