package oracle

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"ContributionScorer/internal/domain"
)

var rubric = []string{
	"100 TDG For every 1 hour of time spent",
	"1 TDG For every 1 USD of product sold",
}

type scriptedCompleter struct {
	responses []string
	errs      []error
	prompts   []string
}

func (s *scriptedCompleter) Complete(_ context.Context, prompt string) (string, error) {
	i := len(s.prompts)
	s.prompts = append(s.prompts, prompt)
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return "", nil
}

func newTestClient(c *scriptedCompleter, attempts int) *Client {
	return New(c, Options{Rubric: rubric, MaxAttempts: attempts, BaseDelay: time.Millisecond})
}

func TestParseClassification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		resp string
		want domain.Classification
	}{
		{"100 TDG For every 1 hour of time spent; 150", domain.Classification{Category: rubric[0], Amount: "150.00"}},
		{" 1 tdg for every 1 usd of product sold ;1,200.5 ", domain.Classification{Category: rubric[1], Amount: "1200.50"}},
		{"garbage text with no semicolon", domain.Classification{Category: domain.CategoryUnexpectedFormat, Amount: "0.00"}},
		{"a; b; c", domain.Classification{Category: domain.CategoryUnexpectedFormat, Amount: "0.00"}},
		{"100 TDG For every 1 hour of time spent; lots", domain.Classification{Category: domain.CategoryUnexpectedFormat, Amount: "0.00"}},
		{"Invented category; 5", domain.Classification{Category: domain.CategoryUnknown, Amount: "0.00"}},
	}

	for _, tc := range cases {
		if got := ParseClassification(tc.resp, rubric); got != tc.want {
			t.Fatalf("ParseClassification(%q) = %+v, want %+v", tc.resp, got, tc.want)
		}
	}

	if got := ParseClassification("Anything; 3", nil); got.Category != "Anything" || got.Amount != "3.00" {
		t.Fatalf("empty rubric should accept any category, got %+v", got)
	}
}

func TestParseContributorsSalvage(t *testing.T) {
	t.Parallel()

	handles, salvaged := ParseContributors("@alice; Bob Smith ;<script>;  ;dave_99")
	if !salvaged {
		t.Fatalf("expected salvage flag")
	}
	if !reflect.DeepEqual(handles, []string{"@alice", "Bob Smith", "dave_99"}) {
		t.Fatalf("unexpected handles: %v", handles)
	}

	handles, salvaged = ParseContributors("@alice;@bob")
	if salvaged || len(handles) != 2 {
		t.Fatalf("clean list should pass untouched: %v %v", handles, salvaged)
	}

	handles, salvaged = ParseContributors("The contributors are alice and bob")
	if !salvaged || handles != nil {
		t.Fatalf("prose answer must not become a handle: %v %v", handles, salvaged)
	}

	handles, salvaged = ParseContributors("Ana Maria Lopez;@carol")
	if salvaged || !reflect.DeepEqual(handles, []string{"Ana Maria Lopez", "@carol"}) {
		t.Fatalf("three-word names should pass: %v %v", handles, salvaged)
	}

	if handles, _ := ParseContributors("   "); handles != nil {
		t.Fatalf("empty response yields no handles")
	}
}

func TestClassifyMalformed(t *testing.T) {
	t.Parallel()

	c := &scriptedCompleter{responses: []string{"garbage text with no semicolon"}}
	got := newTestClient(c, 3).Classify(context.Background(), "did stuff", "@alice", "Telegram")

	if got.Category != "Unexpected response format" || got.Amount != "0.00" {
		t.Fatalf("unexpected result: %+v", got)
	}
	if len(c.prompts) != 1 {
		t.Fatalf("malformed responses must not be retried, got %d calls", len(c.prompts))
	}
	if !strings.Contains(c.prompts[0], "did stuff") || !strings.Contains(c.prompts[0], "Telegram") {
		t.Fatalf("prompt should embed message and platform: %s", c.prompts[0])
	}
}

func TestClassifyRetriesTransportErrors(t *testing.T) {
	t.Parallel()

	c := &scriptedCompleter{
		errs:      []error{errors.New("timeout"), errors.New("502")},
		responses: []string{"", "", rubric[0] + "; 10"},
	}
	got := newTestClient(c, 3).Classify(context.Background(), "x", "y", "Telegram")

	if got.Category != rubric[0] || got.Amount != "10.00" {
		t.Fatalf("unexpected result after retries: %+v", got)
	}
	if len(c.prompts) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(c.prompts))
	}
}

func TestClassifyGivesUp(t *testing.T) {
	t.Parallel()

	boom := errors.New("down")
	c := &scriptedCompleter{errs: []error{boom, boom, boom, boom}}
	got := newTestClient(c, 2).Classify(context.Background(), "x", "y", "Telegram")

	if got.Category != domain.CategoryUnknown || got.Amount != domain.ZeroAmount {
		t.Fatalf("expected Unknown sentinel, got %+v", got)
	}
	if len(c.prompts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(c.prompts))
	}
}

func TestClassifyWithoutCompleter(t *testing.T) {
	t.Parallel()

	got := New(nil, Options{}).Classify(context.Background(), "x", "y", "Telegram")
	if got.Category != domain.CategoryUnknown {
		t.Fatalf("expected Unknown without completer, got %+v", got)
	}
}

func TestContributors(t *testing.T) {
	t.Parallel()

	c := &scriptedCompleter{responses: []string{"@alice;bad|token;bob"}}
	got := newTestClient(c, 1).Contributors(context.Background(), "x", "y", "Telegram")
	if !reflect.DeepEqual(got, []string{"@alice", "bob"}) {
		t.Fatalf("unexpected contributors: %v", got)
	}
}

func TestBackoffGrowsWithJitter(t *testing.T) {
	t.Parallel()

	b := New(nil, Options{BaseDelay: 100 * time.Millisecond, MaxAttempts: 3}).newBackOff()
	for attempt := 1; attempt <= 3; attempt++ {
		d := b.NextBackOff()
		mid := 100 * time.Millisecond << (attempt - 1)
		if d < mid/2 || d > mid+mid/2 {
			t.Fatalf("attempt %d: delay %v outside [%v, %v]", attempt, d, mid/2, mid+mid/2)
		}
	}

	if New(nil, Options{}).newBackOff().NextBackOff() != 0 {
		t.Fatalf("zero base delay means no wait")
	}
}

func TestClassifyStopsWhenContextEnds(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	c := &scriptedCompleter{errs: []error{errors.New("timeout"), errors.New("timeout"), errors.New("timeout")}}
	client := New(completerFunc(func(ctx context.Context, prompt string) (string, error) {
		cancel()
		return c.Complete(ctx, prompt)
	}), Options{Rubric: rubric, MaxAttempts: 3, BaseDelay: time.Millisecond})

	got := client.Classify(ctx, "x", "y", "Telegram")
	if got.Category != domain.CategoryUnknown {
		t.Fatalf("expected Unknown sentinel, got %+v", got)
	}
	if len(c.prompts) != 1 {
		t.Fatalf("cancelled context must not be retried, got %d calls", len(c.prompts))
	}
}

type completerFunc func(ctx context.Context, prompt string) (string, error)

func (f completerFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
