package runner

// scriptBackend runs bodyFile through an interpreter binary invoked as
// "<interpreter> <bodyFile>". This covers every language WOOFNB ships a
// backend for: the cell body is never passed on argv (it may be arbitrarily
// large or contain shell metacharacters), always via a file on disk.
type scriptBackend struct {
	name        string
	interpreter string
	extraArgs   []string
}

func (b scriptBackend) Name() string { return b.name }

func (b scriptBackend) Argv(bodyFile string) []string {
	argv := make([]string, 0, 2+len(b.extraArgs))
	argv = append(argv, b.interpreter)
	argv = append(argv, b.extraArgs...)
	argv = append(argv, bodyFile)
	return argv
}

func init() {
	Register(scriptBackend{name: "python", interpreter: "python3"})
	Register(scriptBackend{name: "bash", interpreter: "bash"})
	Register(scriptBackend{name: "sh", interpreter: "sh"})
	// data cells never reach this registry: Runner.Execute decodes their
	// body directly as JSON/YAML instead of dispatching to a Backend.
}
