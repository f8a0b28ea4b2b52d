// Package demangle turns compiler-mangled linker symbols into
// human-readable function signatures.
//
// Detection is purely prefix-based, never probing: Itanium C++ names
// are demangled with the real ecosystem demangler
// github.com/ianlancetaylor/demangle (the same library
// rhysh-go-perf/perfsession and aclements-go-perf/perfsession use for
// exactly this purpose), Swift names are demangled through a
// dynamically resolved symbol cached for the process lifetime.
package demangle

import (
	"strings"
	"sync"

	iltdemangle "github.com/ianlancetaylor/demangle"

	"github.com/mhahnFr/CallstackLibrary/internal/log"
)

var logger = log.Logger("demangle")

// SwiftFunc is the shape of the dynamically resolved swift_demangle
// entry point, once translated from a raw function pointer into a Go
// callable by the platform-specific resolver.
type SwiftFunc func(mangled string) (demangled string, ok bool)

var (
	swiftOnce     sync.Once
	swiftResolver func() (SwiftFunc, bool)
	swiftFunc     SwiftFunc
	swiftFound    bool
)

// SetSwiftResolver installs the function used to dynamically look up
// the Swift runtime's demangler the first time a Swift-mangled name is
// encountered. Resolution happens at most once, successful or not,
// matching the spec's "one search only" contract.
func SetSwiftResolver(resolver func() (SwiftFunc, bool)) {
	swiftResolver = resolver
}

func resolveSwift() (SwiftFunc, bool) {
	swiftOnce.Do(func() {
		if swiftResolver == nil {
			return
		}
		swiftFunc, swiftFound = swiftResolver()
		if !swiftFound {
			logger.Debug().Msg("swift_demangle not found in any loaded image")
		}
	})
	return swiftFunc, swiftFound
}

// isItanium reports whether name uses the Itanium C++ mangling
// scheme: the "_Z"/"___Z" prefixes, or a "_GLOBAL_<sep><D|I>_" static
// initializer/destructor name.
func isItanium(name string) bool {
	if strings.HasPrefix(name, "_Z") || strings.HasPrefix(name, "___Z") {
		return true
	}
	const prefix = "_GLOBAL_"
	if len(name) < 11 || !strings.HasPrefix(name, prefix) {
		return false
	}
	sep := name[8]
	kind := name[9]
	return (sep == '.' || sep == '_' || sep == '$') &&
		(kind == 'D' || kind == 'I') &&
		name[10] == '_'
}

var swiftPrefixes = []string{"_$s", "$s", "_$e", "$e", "_$S", "$S", "_T0", "@__swiftmacro_"}

// isSwift reports whether name uses a Swift mangling scheme.
func isSwift(name string) bool {
	for _, p := range swiftPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Name demangles the given mangled symbol. If no mangling scheme is
// detected, or demangling fails, a copy of the input is returned -
// the caller always gets an owned string back.
func Name(mangled string, swiftEnabled bool) string {
	switch {
	case isItanium(mangled):
		result := iltdemangle.Filter(mangled)
		if result == mangled {
			logger.Debug().Str("symbol", mangled).Msg("itanium demangling left name unchanged")
		}
		return result

	case swiftEnabled && isSwift(mangled):
		if fn, ok := resolveSwift(); ok {
			if demangled, ok := fn(mangled); ok {
				return demangled
			}
		}
		return mangled

	default:
		return mangled
	}
}
