package sandbox

import (
	"fmt"
	"regexp"
	"strings"
)

// The generated snippet must follow a fixed structural contract:
// exactly one import (the canonical pandas form), a working copy taken
// from the df_in binding, and a df_out binding derived from it.
// Validation is lexical and fails closed, reporting every violated rule.

const (
	// InputBinding is the name the caller-supplied dataset is bound to.
	InputBinding = "df_in"
	// OutputBinding is the name the snippet must assign its result to.
	OutputBinding = "df_out"
	// CanonicalImport is the only import statement a snippet may contain.
	CanonicalImport = "import pandas as pd"
)

// ContractViolation reports every contract rule a snippet violates.
type ContractViolation struct {
	Violations []string
}

func (e *ContractViolation) Error() string {
	return "code contract violation: " + strings.Join(e.Violations, "; ")
}

var (
	canonicalImpRe  = regexp.MustCompile(`(?m)^\s*import\s+pandas\s+as\s+pd\s*$`)
	inputCopyRe     = regexp.MustCompile(`\bdf\s*=\s*df_in\.copy\(\)`)
	outputAssignRe  = regexp.MustCompile(`\bdf_out\s*=`)
	anyImportLineRe = regexp.MustCompile(`(?m)^\s*(import\s+\S.*|from\s+\S.*)$`)
)

// forbidden constructs are denied under any name. This is defence in depth:
// the interpreter only understands a closed transformation grammar, so
// anything here would fail to parse anyway.
var forbidden = []struct {
	pattern *regexp.Regexp
	reason  string
}{
	{regexp.MustCompile(`\bopen\s*\(`), "file I/O via open()"},
	{regexp.MustCompile(`__`), "dunder attribute access"},
	{regexp.MustCompile(`\bos\s*\.`), "os module access"},
	{regexp.MustCompile(`\bsys\s*\.`), "sys module access"},
	{regexp.MustCompile(`\beval\s*\(`), "dynamic evaluation via eval()"},
	{regexp.MustCompile(`\bexec\s*\(`), "dynamic evaluation via exec()"},
	{regexp.MustCompile(`\bsubprocess\b`), "subprocess invocation"},
	{regexp.MustCompile(`\brequests\b`), "network access via requests"},
	{regexp.MustCompile(`\burllib\b`), "network access via urllib"},
	{regexp.MustCompile(`\bsocket\b`), "network access via socket"},
	{regexp.MustCompile(`\bimportlib\b`), "dynamic import via importlib"},
	{regexp.MustCompile(`\bread_csv\s*\(`), "file I/O via read_csv"},
	{regexp.MustCompile(`\bto_csv\s*\(`), "file I/O via to_csv"},
	{regexp.MustCompile(`\bread_parquet\s*\(`), "file I/O via read_parquet"},
	{regexp.MustCompile(`\bto_parquet\s*\(`), "file I/O via to_parquet"},
	{regexp.MustCompile(`\bread_json\s*\(`), "file I/O via read_json"},
	{regexp.MustCompile(`\bread_sql\s*\(`), "database access via read_sql"},
}

// ValidateContract checks a generated snippet against the structural
// contract and the denylist. On failure it returns a *ContractViolation
// naming every violated rule, never just the first.
func ValidateContract(code string) error {
	var violations []string

	if strings.TrimSpace(code) == "" {
		return &ContractViolation{Violations: []string{"empty snippet"}}
	}

	if !canonicalImpRe.MatchString(code) {
		violations = append(violations, fmt.Sprintf("missing canonical import %q", CanonicalImport))
	}

	// Any import line that is not the canonical one is named individually.
	for _, m := range anyImportLineRe.FindAllString(code, -1) {
		line := strings.TrimSpace(m)
		if canonicalImpRe.MatchString(line) {
			continue
		}
		violations = append(violations, fmt.Sprintf("disallowed import: %q", line))
	}

	if !inputCopyRe.MatchString(code) {
		violations = append(violations, fmt.Sprintf("missing working copy assignment `df = %s.copy()`", InputBinding))
	}
	if !outputAssignRe.MatchString(code) {
		violations = append(violations, fmt.Sprintf("missing output assignment `%s = ...`", OutputBinding))
	}

	for _, f := range forbidden {
		if f.pattern.MatchString(code) {
			violations = append(violations, "forbidden construct: "+f.reason)
		}
	}

	if len(violations) > 0 {
		return &ContractViolation{Violations: violations}
	}
	return nil
}

// StripImports removes the canonical import line from a validated snippet.
// The execution environment supplies that capability itself.
func StripImports(code string) string {
	stripped := canonicalImpRe.ReplaceAllString(code, "")
	return strings.TrimSpace(stripped)
}
