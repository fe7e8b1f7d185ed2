package completion

import "regexp"

// semanticRule ties a phase-name keyword to domain vocabulary meaning
// "this phase's goal was reached". Patterns run against the lowercased
// concatenation of the progress log and latest note.
type semanticRule struct {
	phaseKeyword string
	pattern      *regexp.Regexp
}

// semanticRules is the policy table, keyed by workflow type. Extend it
// by adding rows; the detector algorithm never changes.
var semanticRules = map[string][]semanticRule{
	"tdd": {
		{"red", regexp.MustCompile(`(test\s+(is\s+)?(written|failing|fails)|wrote\s+(a\s+|the\s+)?(failing\s+)?test|failing\s+test\s+in\s+place)`)},
		{"green", regexp.MustCompile(`(tests?\s+(is\s+|are\s+)?(pass|passes|passing|green)|made\s+(it|the\s+test)\s+pass|suite\s+(is\s+)?green)`)},
		{"refactor", regexp.MustCompile(`(refactor(ed|ing\s+done)|cleaned\s+up|removed\s+duplication|extracted\s+\w+|still\s+green)`)},
	},
	"debug": {
		{"reproduce", regexp.MustCompile(`(reproduc(ed|ible)|can\s+(now\s+)?reproduce|minimal\s+repro)`)},
		{"isolate", regexp.MustCompile(`(isolated|narrowed\s+(it\s+)?down|found\s+the\s+(cause|culprit|problem)|root\s+cause\s+(found|identified|is))`)},
		{"fix", regexp.MustCompile(`(fix(ed|\s+applied|\s+in\s+place)|patched|resolved|regression\s+test\s+added)`)},
		{"verify", regexp.MustCompile(`(verified|no\s+longer\s+(fails|crashes|reproduces)|repro\s+(is\s+)?gone|suite\s+(is\s+)?(clean|green|passing))`)},
	},
	"refactor": {
		{"characterize", regexp.MustCompile(`(characteriz(ed|ation\s+tests?\s+(added|in\s+place))|behavior\s+(pinned|captured|covered)|coverage\s+in\s+place)`)},
		{"restructure", regexp.MustCompile(`(restructur(ed|ing\s+done)|moved\s+\w+|extracted\s+\w+|renamed\s+\w+|structure\s+(is\s+)?in\s+place)`)},
		{"verify", regexp.MustCompile(`(behavior\s+unchanged|all\s+tests?\s+(pass|passing|green)|equivalent\s+behavior|verified)`)},
	},
}
