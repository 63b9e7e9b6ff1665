package jsonb

import (
	"strconv"
	"strings"

	"argusdb/internal/common"
)

// StepKind distinguishes the three path step forms a compiled path or a
// plain dotted field reference can contain.
type StepKind int

const (
	StepField StepKind = iota
	StepIndex
	StepWildcard
)

// Step is one segment of a path: a field name, an array index, or a `[*]`
// wildcard over every element of an array.
type Step struct {
	Kind  StepKind
	Field string
	Index int
}

// CompiledPath is the parsed form of a JSON-path expression such as
// `$.orders[0].total` or `$.tags[*]` (§4.1 "compile_path").
type CompiledPath struct {
	Raw   string
	Steps []Step
}

// Compile parses a `$`-rooted JSON-path expression into a CompiledPath.
// Supported grammar: `$` optionally followed by any number of
// `.name` or `[n]` or `[*]` segments.
func Compile(text string) (CompiledPath, error) {
	steps, err := parsePathSteps(text)
	if err != nil {
		return CompiledPath{}, err
	}
	return CompiledPath{Raw: text, Steps: steps}, nil
}

// FieldPath builds the step list for a plain dotted field reference, such
// as the `a.b.c` identifiers the outer SQL surface parses into
// FieldReference expressions (no `$`, no array indexing).
func FieldPath(dotted string) []Step {
	parts := strings.Split(dotted, ".")
	steps := make([]Step, len(parts))
	for i, p := range parts {
		steps[i] = Step{Kind: StepField, Field: p}
	}
	return steps
}

func parsePathSteps(text string) ([]Step, error) {
	s := text
	if strings.HasPrefix(s, "$") {
		s = s[1:]
	}
	var steps []Step
	for len(s) > 0 {
		switch s[0] {
		case '.':
			s = s[1:]
			end := strings.IndexAny(s, ".[")
			var name string
			if end == -1 {
				name, s = s, ""
			} else {
				name, s = s[:end], s[end:]
			}
			if name == "" {
				return nil, common.New(common.ErrQuery, "empty field name in json path: "+text)
			}
			steps = append(steps, Step{Kind: StepField, Field: name})
		case '[':
			end := strings.IndexByte(s, ']')
			if end == -1 {
				return nil, common.New(common.ErrQuery, "unterminated [ in json path: "+text)
			}
			inner := s[1:end]
			s = s[end+1:]
			if inner == "*" {
				steps = append(steps, Step{Kind: StepWildcard})
				continue
			}
			idx, err := strconv.Atoi(inner)
			if err != nil {
				return nil, common.Wrap(common.ErrQuery, "invalid array index in json path: "+text, err)
			}
			steps = append(steps, Step{Kind: StepIndex, Index: idx})
		default:
			return nil, common.New(common.ErrQuery, "unexpected character in json path: "+text)
		}
	}
	return steps, nil
}

// SelectByPath evaluates steps against an encoded value, returning zero,
// one, or many still-encoded sub-values (§4.1 "raw.select_by_path"). A
// wildcard step fans a single input into the raw bytes of every element
// of the array it targets; a miss at any step for a given candidate drops
// that candidate rather than erroring.
func SelectByPath(blob []byte, steps []Step) [][]byte {
	candidates := [][]byte{blob}
	for _, step := range steps {
		var next [][]byte
		for _, c := range candidates {
			switch step.Kind {
			case StepField:
				if raw, ok := GetByNameRaw(c, step.Field); ok {
					next = append(next, raw)
				}
			case StepIndex:
				if raw, ok := GetByIndexRaw(c, step.Index); ok {
					next = append(next, raw)
				}
			case StepWildcard:
				next = append(next, arrayElements(c)...)
			}
		}
		candidates = next
		if len(candidates) == 0 {
			break
		}
	}
	return candidates
}

func arrayElements(blob []byte) [][]byte {
	if len(blob) < 1 || Kind(blob[0]) != KindArray {
		return nil
	}
	rest := blob[1:]
	n, rest, err := readU32(rest)
	if err != nil {
		return nil
	}
	out := make([][]byte, 0, n)
	for i := uint32(0); i < n; i++ {
		val, next, err := readLenPrefixed(rest)
		if err != nil {
			return out
		}
		out = append(out, val)
		rest = next
	}
	return out
}
