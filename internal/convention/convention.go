// Package convention parses the file-name convention that drives
// orchestration. Module files are named <orderKey>_<identifier> and
// generated orchestrator artifacts <orderKey>_orchestrate_<moduleCount>;
// everything is parsed once at the boundary into typed descriptors so the
// rest of the system never touches raw names.
package convention

import (
	"fmt"
	"strconv"
	"strings"
)

// OrchestrateToken separates an orchestrator artifact's order key from its
// encoded module count.
const OrchestrateToken = "orchestrate"

// Kind classifies a directory entry.
type Kind int

const (
	// KindIgnored marks entries that play no part in orchestration.
	KindIgnored Kind = iota
	// KindModule marks ordinary module files.
	KindModule
	// KindOrchestrator marks generated orchestrator artifacts.
	KindOrchestrator
)

// Classification is the result of parsing one file name.
type Classification struct {
	Kind        Kind
	OrderKey    int
	ModuleCount int
	Name        string
	// Warning is set when a name resembles the convention but fails integer
	// parsing. Such entries are ignored without failing the scan.
	Warning string
}

// Parse classifies fileName against the naming convention. Only names
// carrying the configured extension participate; ext must include the dot
// (".go"). Orchestrator names are matched before module names because every
// orchestrator name is also a syntactically valid module name.
func Parse(fileName, ext string) Classification {
	if ext == "" || !strings.HasSuffix(fileName, ext) {
		return Classification{Kind: KindIgnored}
	}
	stem := strings.TrimSuffix(fileName, ext)
	sep := strings.Index(stem, "_")
	if sep <= 0 || sep == len(stem)-1 {
		return Classification{Kind: KindIgnored}
	}
	lead, rest := stem[:sep], stem[sep+1:]
	key, err := parseOrderKey(lead)
	if err != nil {
		// Ordinary snake_case names (string_utils.go) are not near misses;
		// only a numeric-looking lead that fails parsing deserves a flag.
		if !looksNumeric(lead) {
			return Classification{Kind: KindIgnored}
		}
		return Classification{
			Kind:    KindIgnored,
			Warning: fmt.Sprintf("convention: %s: order key %q is not a non-negative integer", fileName, lead),
		}
	}
	if countPart, ok := strings.CutPrefix(rest, OrchestrateToken+"_"); ok {
		count, err := parseOrderKey(countPart)
		if err != nil {
			return Classification{
				Kind:    KindIgnored,
				Warning: fmt.Sprintf("convention: %s: module count %q is not a non-negative integer", fileName, countPart),
			}
		}
		return Classification{Kind: KindOrchestrator, OrderKey: key, ModuleCount: count, Name: rest}
	}
	return Classification{Kind: KindModule, OrderKey: key, Name: rest}
}

// ArtifactName builds the canonical orchestrator file name for a directory
// with moduleCount modules.
func ArtifactName(orderKey, moduleCount int, ext string) string {
	return fmt.Sprintf("%d_%s_%d%s", orderKey, OrchestrateToken, moduleCount, ext)
}

// looksNumeric reports whether s starts like an integer (an optional sign
// followed by a digit).
func looksNumeric(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '+' || s[0] == '-' {
		s = s[1:]
	}
	return len(s) > 0 && s[0] >= '0' && s[0] <= '9'
}

func parseOrderKey(s string) (int, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
