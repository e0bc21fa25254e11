package app

// Command selects the mode the binary runs in.
type Command string

const (
	// CommandServe starts the HTTP API.
	CommandServe Command = "serve"
	// CommandMigrate applies the PostgreSQL migrations and exits.
	CommandMigrate Command = "migrate"
)

// ParseCommand reads the subcommand from args. Empty or unknown input
// selects CommandServe.
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}
	switch args[0] {
	case "migrate":
		return CommandMigrate
	default:
		return CommandServe
	}
}
