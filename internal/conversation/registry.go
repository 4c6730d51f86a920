package conversation

// Command is a slash command available in the idle state.
type Command struct {
	Name        string
	Description string
	Handler     HandlerFunc
}

// commandOrder is the order commands are listed in the chat menu.
var commandOrder = []string{"/goals", "/create"}

// RegisterAllCommands returns the idle-state commands keyed by name.
func RegisterAllCommands(deps Deps, m *Machine) map[string]Command {
	commands := make(map[string]Command)

	commands["/goals"] = Command{
		Name:        "/goals",
		Description: deps.Config.Messages.CommandGoals,
		Handler:     NewGoalsHandler(m),
	}
	commands["/create"] = Command{
		Name:        "/create",
		Description: deps.Config.Messages.CommandCreate,
		Handler:     NewCreateHandler(m),
	}

	return commands
}
