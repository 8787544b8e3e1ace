package core

// ModuleID is the namespaced identifier of a module, e.g. "memory.sqlite".
type ModuleID string

// Namespace returns the part of the ID before the first dot.
func (id ModuleID) Namespace() string {
	for i := 0; i < len(id); i++ {
		if id[i] == '.' {
			return string(id[:i])
		}
	}
	return string(id)
}

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	// ID uniquely identifies the module.
	ID ModuleID

	// New returns a fresh, unconfigured instance.
	New func() Module
}

// Module is the minimal interface every module implements.
// Optional behaviour is expressed through the lifecycle interfaces.
type Module interface {
	ModuleInfo() ModuleInfo
}
