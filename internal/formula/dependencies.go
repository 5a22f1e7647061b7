package formula

import (
	"strings"
)

var reservedKeywords = map[string]struct{}{
	"SUM": {}, "AVG": {}, "MIN": {}, "MAX": {}, "COUNT": {},
	"IF": {}, "AND": {}, "OR": {}, "NOT": {}, "TRUE": {}, "FALSE": {},
}

// IsReserved reports whether name is a formula keyword rather than a column.
func IsReserved(name string) bool {
	_, ok := reservedKeywords[strings.ToUpper(name)]
	return ok
}

// Dependencies returns the column keys a formula reads from its own
// worksheet: plain column references plus the arguments of aggregate calls.
// Cross-worksheet terms are skipped since they read another sheet's columns.
// It works from tokens, so it still answers for formulas that fail to parse.
func Dependencies(text string) []string {
	deps, _ := scanReferences(text)
	return deps
}

// WorksheetReferences returns the sibling worksheet names a formula reads.
func WorksheetReferences(text string) []string {
	_, sheets := scanReferences(text)
	return sheets
}

func scanReferences(text string) (deps []string, sheets []string) {
	src := strings.TrimPrefix(strings.TrimSpace(text), "=")
	tokens, _ := tokenize(src)
	seenDeps := map[string]struct{}{}
	seenSheets := map[string]struct{}{}

	addDep := func(key string) {
		norm := strings.ToLower(key)
		if _, ok := seenDeps[norm]; ok {
			return
		}
		seenDeps[norm] = struct{}{}
		deps = append(deps, key)
	}
	addSheet := func(name string) {
		norm := strings.ToLower(name)
		if _, ok := seenSheets[norm]; ok {
			return
		}
		seenSheets[norm] = struct{}{}
		sheets = append(sheets, name)
	}
	at := func(i int) token {
		if i >= len(tokens) {
			return token{typ: tokEOF}
		}
		return tokens[i]
	}

	for i := 0; i < len(tokens); {
		tok := tokens[i]
		if tok.typ != tokIdent {
			i++
			continue
		}

		if words := sheetNameLength(func(n int) token { return at(i + n) }); words > 0 {
			addSheet(sheetName(src, tokens[i:i+words]))
			i += words + 1
			if at(i).typ == tokIdent {
				i++
				if at(i).typ == tokLParen && at(i+1).typ == tokIdent && at(i+2).typ == tokRParen {
					i += 3
				}
			}
			continue
		}

		if _, ok := parseAggregate(tok.text); ok && at(i+1).typ == tokLParen {
			if at(i+2).typ == tokIdent {
				addDep(tokens[i+2].text)
				i += 3
				continue
			}
			i += 2
			continue
		}
		if !IsReserved(tok.text) {
			addDep(tok.text)
		}
		i++
	}
	return deps, sheets
}
