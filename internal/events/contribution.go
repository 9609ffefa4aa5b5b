package events

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ContributionTag opens an explicitly tagged contribution block.
const ContributionTag = "[CONTRIBUTION EVENT]"

// ErrNoContributionBlock is returned when the text carries no contribution tag.
var ErrNoContributionBlock = errors.New("no contribution block")

// Contribution is a structured, self-reported contribution. Its Contributors
// and TokenAmount are authoritative over the oracle.
type Contribution struct {
	Type         string
	Amount       string
	Description  string
	Contributors []string
	TokenAmount  string
	AttachedFile string
}

// ParseError lists the fields a tagged block was missing or had malformed.
type ParseError struct {
	Missing []string
	Invalid []string
}

func (e *ParseError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.Invalid, ", "))
	}
	return fmt.Sprintf("contribution block: %s", strings.Join(parts, "; "))
}

const (
	fieldType         = "type"
	fieldAmount       = "amount"
	fieldDescription  = "description"
	fieldContributors = "contributors"
	fieldToken        = "token amount"
	fieldFile         = "attached file"
)

var requiredFields = []string{fieldAmount, fieldDescription, fieldContributors, fieldToken}

var strictBlock = regexp.MustCompile(`(?m)^\[CONTRIBUTION EVENT\][ \t]*\r?\n` +
	`- Type: ([^\r\n]+)\r?\n` +
	`- Amount: ([^\r\n]+)\r?\n` +
	`- Description: ([^\r\n]+)\r?\n` +
	`- Contributor\(s\): ([^\r\n]+)\r?\n` +
	`- TDG Issued: ([^\r\n]+)` +
	`(?:\r?\n- Attached Filename: ([^\r\n]+))?`)

var labels = map[string]string{
	"type":              fieldType,
	"contribution type": fieldType,
	"amount":            fieldAmount,
	"description":       fieldDescription,
	"contributor(s)":    fieldContributors,
	"contributors":      fieldContributors,
	"contributor":       fieldContributors,
	"tdg issued":        fieldToken,
	"tdg":               fieldToken,
	"token amount":      fieldToken,
	"attached filename": fieldFile,
	"attached file":     fieldFile,
}

// ParseContribution extracts a contribution block from text. The strict
// layout is tried first; otherwise each labelled line is recognized on its
// own, in any order. A block missing a required field yields *ParseError.
func ParseContribution(text string) (Contribution, error) {
	start := strings.Index(text, ContributionTag)
	if start < 0 {
		return Contribution{}, ErrNoContributionBlock
	}

	fields := map[string]string{}
	if m := strictBlock.FindStringSubmatch(text[start:]); m != nil {
		fields[fieldType] = m[1]
		fields[fieldAmount] = m[2]
		fields[fieldDescription] = m[3]
		fields[fieldContributors] = m[4]
		fields[fieldToken] = m[5]
		fields[fieldFile] = m[6]
	} else {
		fields = scanFields(text[start+len(ContributionTag):])
	}

	return buildContribution(fields)
}

func scanFields(body string) map[string]string {
	fields := map[string]string{}
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "---") {
			break
		}
		line = strings.TrimSpace(strings.TrimLeft(line, "-*• "))
		label, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name, known := labels[strings.ToLower(strings.TrimSpace(label))]
		if !known {
			continue
		}
		if _, dup := fields[name]; dup {
			continue
		}
		fields[name] = value
	}
	return fields
}

func buildContribution(fields map[string]string) (Contribution, error) {
	get := func(name string) string { return strings.TrimSpace(fields[name]) }

	c := Contribution{
		Type:         get(fieldType),
		Amount:       get(fieldAmount),
		Description:  get(fieldDescription),
		Contributors: SplitContributors(get(fieldContributors)),
		TokenAmount:  get(fieldToken),
		AttachedFile: get(fieldFile),
	}
	if strings.EqualFold(c.AttachedFile, "none") {
		c.AttachedFile = ""
	}

	perr := &ParseError{}
	for _, name := range requiredFields {
		if name == fieldContributors {
			if len(c.Contributors) == 0 {
				perr.Missing = append(perr.Missing, name)
			}
			continue
		}
		if get(name) == "" {
			perr.Missing = append(perr.Missing, name)
		}
	}
	if c.TokenAmount != "" {
		if _, err := strconv.ParseFloat(strings.ReplaceAll(c.TokenAmount, ",", ""), 64); err != nil {
			perr.Invalid = append(perr.Invalid, fieldToken)
		}
	}
	if len(perr.Missing) > 0 || len(perr.Invalid) > 0 {
		return Contribution{}, perr
	}
	return c, nil
}

// SplitContributors splits a ";" or "," separated contributor list.
func SplitContributors(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ';' || r == ',' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
