package convention

// ModuleDescriptor identifies one discovered module file. Descriptors are
// immutable; a rescan produces replacements, never mutations.
type ModuleDescriptor struct {
	// Path is the file's location on disk and the descriptor's identity.
	Path string `json:"path"`
	// Directory is the containing directory.
	Directory string `json:"directory"`
	// OrderKey determines execution order within the directory. It is
	// unique among the directory's ordinary modules; a duplicate is a
	// convention conflict detected by the scanner.
	OrderKey int `json:"order_key"`
	// Name is the identifier portion of the file name.
	Name string `json:"name"`
}

// OrchestratorDescriptor describes the generated artifact for one directory.
type OrchestratorDescriptor struct {
	Directory string `json:"directory"`
	Path      string `json:"path"`
	OrderKey  int    `json:"order_key"`
	// ModuleCount is the number of ordinary modules the artifact encoded at
	// generation time. The artifact is stale once the directory's current
	// module count or order differs from it.
	ModuleCount int `json:"module_count"`
	// GeneratedAt is a logical version assigned by the registry, zero for
	// artifacts found on disk whose generation is unknown.
	GeneratedAt int64 `json:"generated_at"`
}
