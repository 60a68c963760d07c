package config

import (
	"strconv"
	"strings"
)

// RefSeparator splits a source reference into module name and output index.
// "convB.1" selects output port 1 of module convB; a bare "convB" selects
// port 0.
const RefSeparator = "."

// SplitRef parses a source reference into (module name, output port).
//
// A reference that matches a declared module name verbatim binds to port 0.
// Otherwise the text after the last separator is tried as an output index;
// when it parses as a non-negative integer the prefix is the module name.
// Anything else is returned whole with port 0 and left to the caller's
// existence checks. The modules map may be nil, in which case only the
// suffix rule applies.
func SplitRef(ref string, modules map[string]*Module) (string, int) {
	if modules != nil {
		if _, ok := modules[ref]; ok {
			return ref, 0
		}
	}
	idx := strings.LastIndex(ref, RefSeparator)
	if idx < 0 {
		return ref, 0
	}
	port, err := strconv.Atoi(ref[idx+1:])
	if err != nil || port < 0 {
		return ref, 0
	}
	return ref[:idx], port
}

// FormatRef renders a reference label for a module/port pair the way the
// literal syntax would spell it: "name.port" when the source module is
// declared multi-output, bare "name" otherwise.
func FormatRef(name string, port int, multiOutput bool) string {
	if multiOutput {
		return name + RefSeparator + strconv.Itoa(port)
	}
	return name
}
