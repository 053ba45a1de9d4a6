package precompile

import "fmt"

// Granularity tells the engine how a participant takes part in a pass.
type Granularity uint8

const (
	NotSupported Granularity = iota
	PerResource
	PerPass
)

func (g Granularity) String() string {
	switch g {
	case PerResource:
		return "per-resource"
	case PerPass:
		return "per-pass"
	default:
		return "not-supported"
	}
}

// Pass indices.
const (
	PassCollectScripts = iota
	PassCompileScripts
	PassCollectInstanceTypes
	PassCompileInstanceTypes
	PassCollectEventHandlers
	PassCompileEventHandlers
	PassGenerateInstanceClass
	PassCompileInstanceClass

	MaxPass = PassCompileInstanceClass
)

var passNames = [...]string{
	PassCollectScripts:        "CollectScripts",
	PassCompileScripts:        "CompileScripts",
	PassCollectInstanceTypes:  "CollectInstanceTypes",
	PassCompileInstanceTypes:  "CompileInstanceTypes",
	PassCollectEventHandlers:  "CollectEventHandlers",
	PassCompileEventHandlers:  "CompileEventHandlers",
	PassGenerateInstanceClass: "GenerateInstanceClass",
	PassCompileInstanceClass:  "CompileInstanceClass",
}

// PassName returns the name of a pass index.
func PassName(pass int) string {
	if pass >= 0 && pass < len(passNames) {
		return passNames[pass]
	}
	return fmt.Sprintf("Pass%d", pass)
}
