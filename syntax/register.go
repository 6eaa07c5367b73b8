package syntax

import "rush.sh/rush/expand"

// init wires this package's $(( ... )) parser into the expand package,
// so ${arr[expr]}'s index can be parsed without expand importing
// syntax directly (expand.RegisterArithmParser's doc comment explains
// the cycle this avoids).
func init() {
	expand.RegisterArithmParser(ParseArithm)
}
