// Package decode implements the "airlock" TolerantDecoder (§4.3): it locates
// the first well-formed JSON value embedded in free-form LLM prose, repairs
// minor defects (trailing commas, unquoted keys, code-fence wrappers), and
// validates the result against a caller-supplied schema descriptor before
// handing back a typed value.
package decode

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"

	"github.com/paudley/git-ai-reporter/internal/reporter/errs"
)

// codeFence matches a ```[lang]\n...\n``` wrapper, capturing its body.
var codeFence = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n?(.*?)```")

// SchemaDescriptor names the expected shape of a decoded value. Raw, when
// non-empty, is a JSON Schema document used to validate the decoded value.
// An empty Raw means "no validation beyond successful JSON parsing."
type SchemaDescriptor struct {
	Raw string
}

// Decode parses raw LLM output into target (a pointer), tolerating the
// defects listed in the package doc. On failure it returns a *errs.DecodeError
// describing why.
func Decode(raw string, schema SchemaDescriptor, target any) error {
	candidate, ok := airlock(raw)
	if !ok {
		return &errs.DecodeError{Kind: errs.DecodeKindNoCandidate, Excerpt: excerpt(raw)}
	}

	normalized := candidate
	if !gjson.Valid(normalized) {
		repaired, repairErr := jsonrepair.JSONRepair(normalized)
		if repairErr != nil || !gjson.Valid(repaired) {
			return &errs.DecodeError{Kind: errs.DecodeKindUnparsable, Excerpt: excerpt(candidate)}
		}

		normalized = repaired
	}

	if schema.Raw != "" {
		if err := validateSchema(schema.Raw, normalized); err != nil {
			return &errs.DecodeError{Kind: errs.DecodeKindSchemaInvalid, Excerpt: err.Error()}
		}
	}

	if err := json.Unmarshal([]byte(normalized), target); err != nil {
		return &errs.DecodeError{Kind: errs.DecodeKindUnparsable, Excerpt: err.Error()}
	}

	return nil
}

// airlock isolates the first balanced {...} or [...] span in raw, unwrapping
// a surrounding code fence first if present.
func airlock(raw string) (string, bool) {
	body := raw
	if m := codeFence.FindStringSubmatch(raw); m != nil {
		body = m[1]
	}

	for start := 0; start < len(body); start++ {
		if body[start] != '{' && body[start] != '[' {
			continue
		}

		if end, ok := findBalanced(body, start); ok {
			return strings.TrimSpace(body[start : end+1]), true
		}
	}

	return "", false
}

// findBalanced returns the index of the bracket matching the opener at
// start, respecting string literals and escape sequences.
func findBalanced(s string, start int) (int, bool) {
	opener := s[start]

	closer := byte('}')
	if opener == '[' {
		closer = ']'
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}

			continue
		}

		switch c {
		case '"':
			inString = true
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}

	return 0, false
}

func validateSchema(schemaJSON, candidateJSON string) error {
	schemaLoader := gojsonschema.NewStringLoader(schemaJSON)
	docLoader := gojsonschema.NewStringLoader(candidateJSON)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}

		return fmt.Errorf("schema validation failed: %s", strings.Join(msgs, "; "))
	}

	return nil
}

const excerptLen = 200

func excerpt(s string) string {
	if len(s) <= excerptLen {
		return s
	}

	return s[:excerptLen] + "..."
}
