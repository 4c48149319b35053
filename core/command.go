package core

// CommandHandler handles one console verb.
// The handler is responsible for pulling its own arguments from args.
type CommandHandler func(args *Args)

// Command is a console verb
type Command struct {
	Name    string
	Usage   string // Argument synopsis for the dictionary (e.g., "<milliseconds>")
	Handler CommandHandler
}

// CommandRegistry holds the console verbs.
// Verbs are registered at startup; lookups run inside the console interrupt
// and never allocate.
type CommandRegistry struct {
	commands []Command
}

// NewCommandRegistry creates an empty command registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{}
}

// Register adds a verb. Registering an existing name replaces its handler.
func (r *CommandRegistry) Register(name string, usage string, handler CommandHandler) {
	for i := range r.commands {
		if r.commands[i].Name == name {
			r.commands[i].Usage = usage
			r.commands[i].Handler = handler
			return
		}
	}

	r.commands = append(r.commands, Command{
		Name:    name,
		Usage:   usage,
		Handler: handler,
	})
}

// Lookup finds the command whose name equals verb
func (r *CommandRegistry) Lookup(verb []byte) (*Command, bool) {
	for i := range r.commands {
		if tokenIs(verb, r.commands[i].Name) {
			return &r.commands[i], true
		}
	}
	return nil, false
}

// Count returns the number of registered verbs
func (r *CommandRegistry) Count() int {
	return len(r.commands)
}

// All returns a copy of the registered commands in registration order
func (r *CommandRegistry) All() []Command {
	all := make([]Command, len(r.commands))
	copy(all, r.commands)
	return all
}

// Dictionary lists the verbs one per line with their argument synopsis
func (r *CommandRegistry) Dictionary() string {
	dict := ""
	for _, cmd := range r.commands {
		if cmd.Usage != "" {
			dict += cmd.Name + " " + cmd.Usage + "\n"
		} else {
			dict += cmd.Name + "\n"
		}
	}
	return dict
}
