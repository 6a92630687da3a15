package registry

import (
	"fmt"
	"sort"

	"github.com/CyberForgeX/titanoboa/internal/convention"
)

// Diff reports how a rebuilt registry differs from the previous snapshot.
type Diff struct {
	AddedDirectories   []string `json:"added_directories,omitempty"`
	RemovedDirectories []string `json:"removed_directories,omitempty"`
	AddedModules       []string `json:"added_modules,omitempty"`
	RemovedModules     []string `json:"removed_modules,omitempty"`
	// Reordered lists directories whose module order changed without any
	// addition or removal.
	Reordered []string `json:"reordered,omitempty"`
}

// Empty reports whether nothing changed between snapshots.
func (d Diff) Empty() bool {
	return len(d.AddedDirectories) == 0 &&
		len(d.RemovedDirectories) == 0 &&
		len(d.AddedModules) == 0 &&
		len(d.RemovedModules) == 0 &&
		len(d.Reordered) == 0
}

// Summary renders a one-line human description of the diff.
func (d Diff) Summary() string {
	if d.Empty() {
		return "no changes"
	}
	return fmt.Sprintf("+%d/-%d directories, +%d/-%d modules, %d reordered",
		len(d.AddedDirectories), len(d.RemovedDirectories),
		len(d.AddedModules), len(d.RemovedModules), len(d.Reordered))
}

// ComputeDiff compares two registries. Either side may be nil, meaning no
// snapshot existed.
func ComputeDiff(prev, cur *Registry) Diff {
	var d Diff
	prevDirs := map[string]bool{}
	if prev != nil {
		for dir := range prev.Directories {
			prevDirs[dir] = true
		}
	}
	curDirs := map[string]bool{}
	if cur != nil {
		for dir := range cur.Directories {
			curDirs[dir] = true
		}
	}

	for dir := range curDirs {
		if !prevDirs[dir] {
			d.AddedDirectories = append(d.AddedDirectories, dir)
		}
	}
	for dir := range prevDirs {
		if !curDirs[dir] {
			d.RemovedDirectories = append(d.RemovedDirectories, dir)
		}
	}

	prevModules := modulePaths(prev)
	curModules := modulePaths(cur)
	for path := range curModules {
		if !prevModules[path] {
			d.AddedModules = append(d.AddedModules, path)
		}
	}
	for path := range prevModules {
		if !curModules[path] {
			d.RemovedModules = append(d.RemovedModules, path)
		}
	}

	// A directory re-orders when the same module identifiers appear in a
	// different order key sequence (e.g. two modules swapped prefixes).
	if prev != nil && cur != nil {
		for dir, curSnap := range cur.Directories {
			prevSnap, ok := prev.Directories[dir]
			if !ok {
				continue
			}
			prevNames, curNames := identifiers(prevSnap.Modules), identifiers(curSnap.Modules)
			if sameMembers(prevNames, curNames) && !sameSequence(prevNames, curNames) {
				d.Reordered = append(d.Reordered, dir)
			}
		}
	}

	sort.Strings(d.AddedDirectories)
	sort.Strings(d.RemovedDirectories)
	sort.Strings(d.AddedModules)
	sort.Strings(d.RemovedModules)
	sort.Strings(d.Reordered)
	return d
}

func identifiers(modules []convention.ModuleDescriptor) []string {
	names := make([]string, len(modules))
	for i, m := range modules {
		names[i] = m.Name
	}
	return names
}

func modulePaths(r *Registry) map[string]bool {
	paths := map[string]bool{}
	if r == nil {
		return paths
	}
	for _, snap := range r.Directories {
		for _, m := range snap.Modules {
			paths[m.Path] = true
		}
	}
	return paths
}

func sameSequence(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameMembers(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]int, len(a))
	for _, s := range a {
		set[s]++
	}
	for _, s := range b {
		if set[s] == 0 {
			return false
		}
		set[s]--
	}
	return true
}
