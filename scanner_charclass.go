package kuroko

// Character classification helpers for the scanner (§4.1). Grounded on
// the teacher's vm_charset.go charset bitmap type — that file modeled
// an arbitrary PEG character class as a 256-bit membership set; the
// scanner only ever needs a handful of fixed classes, so these are
// plain predicate functions rather than a general bitmap type.

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isOctalDigit(c byte) bool { return c >= '0' && c <= '7' }

func isBinaryDigit(c byte) bool { return c == '0' || c == '1' }

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isAlphaNumeric(c byte) bool { return isAlpha(c) || isDigit(c) }

func isSpaceOrTab(c byte) bool { return c == ' ' || c == '\t' }
