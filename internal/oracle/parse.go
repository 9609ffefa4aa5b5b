package oracle

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"ContributionScorer/internal/domain"
)

var contributorToken = regexp.MustCompile(`^@?[\p{L}\p{N}_.\-]+(?: [\p{L}\p{N}_.\-]+)*$`)

const (
	maxContributorLen   = 64
	maxContributorWords = 3
)

// ParseClassification parses a "<category>; <amount>" response. Responses with
// any other shape map to the unexpected-format sentinel; categories outside a
// non-empty rubric map to Unknown.
func ParseClassification(resp string, rubric []string) domain.Classification {
	invalid := domain.Classification{Category: domain.CategoryUnexpectedFormat, Amount: domain.ZeroAmount}

	parts := strings.Split(strings.TrimSpace(resp), ";")
	if len(parts) != 2 {
		return invalid
	}

	category := strings.Trim(strings.TrimSpace(parts[0]), `"'`)
	amountText := strings.ReplaceAll(strings.Trim(strings.TrimSpace(parts[1]), `"'`), ",", "")
	if category == "" {
		return invalid
	}
	amount, err := strconv.ParseFloat(amountText, 64)
	if err != nil || amount < 0 {
		return invalid
	}

	if len(rubric) > 0 {
		canonical, ok := matchRubric(category, rubric)
		if !ok {
			return domain.Classification{Category: domain.CategoryUnknown, Amount: domain.ZeroAmount}
		}
		category = canonical
	}

	return domain.Classification{Category: category, Amount: fmt.Sprintf("%.2f", amount)}
}

func matchRubric(category string, rubric []string) (string, bool) {
	for _, r := range rubric {
		if strings.EqualFold(strings.TrimSpace(r), category) {
			return r, true
		}
	}
	return "", false
}

// ParseContributors parses a semicolon-delimited handle list. Tokens outside
// the allowed handle alphabet, or longer than a short name, are dropped;
// salvaged reports whether any were.
func ParseContributors(resp string) (handles []string, salvaged bool) {
	resp = strings.TrimSpace(resp)
	if resp == "" {
		return nil, false
	}

	for _, tok := range strings.Split(resp, ";") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if len(tok) > maxContributorLen || len(strings.Fields(tok)) > maxContributorWords || !contributorToken.MatchString(tok) {
			salvaged = true
			continue
		}
		handles = append(handles, tok)
	}
	return handles, salvaged
}
