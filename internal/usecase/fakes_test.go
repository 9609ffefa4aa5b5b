package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"

	"ContributionScorer/internal/config"
	"ContributionScorer/internal/domain"
	"ContributionScorer/internal/transcript"
)

// memStore implements every tabular port in memory.
type memStore struct {
	rows        []domain.ChatRow
	checkpoints map[string]domain.Checkpoint
	stamps      map[string]domain.Stamp
	records     []domain.ContributionRecord
	history     []domain.HistoryEntry
	identities  []domain.Identity

	// failAppendAfter makes CommitEntry fail when it would leave more than
	// this many records in the ledger. Negative disables it.
	failAppendAfter int
	// failCheckpointSave makes the n-th SaveCheckpoint call fail. Zero disables it.
	failCheckpointSave int
	checkpointSaves    int
}

func newMemStore() *memStore {
	return &memStore{
		checkpoints:     map[string]domain.Checkpoint{},
		stamps:          map[string]domain.Stamp{},
		failAppendAfter: -1,
	}
}

func (m *memStore) addRow(sender, text, date string) int64 {
	id := int64(len(m.rows) + 1)
	m.rows = append(m.rows, domain.ChatRow{ID: id, ChatroomName: "farm", SenderHandle: sender, MessageText: text, StatusDate: date})
	return id
}

func (m *memStore) row(id int64) domain.ChatRow {
	return m.rows[id-1]
}

func (m *memStore) PendingRows(_ context.Context, limit int) ([]domain.ChatRow, error) {
	var out []domain.ChatRow
	for _, r := range m.rows {
		if r.ComputedHash != "" {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) GetCheckpoint(_ context.Context, name string) (*domain.Checkpoint, error) {
	cp, ok := m.checkpoints[name]
	if !ok {
		return nil, nil
	}
	return &cp, nil
}

func (m *memStore) SaveCheckpoint(_ context.Context, cp domain.Checkpoint) error {
	m.checkpointSaves++
	if m.checkpointSaves == m.failCheckpointSave {
		return errors.New("checkpoint store unavailable")
	}
	if prev, ok := m.checkpoints[cp.FileName]; ok && prev.LastProcessedLine > cp.LastProcessedLine {
		cp.LastProcessedLine = prev.LastProcessedLine
	}
	m.checkpoints[cp.FileName] = cp
	return nil
}

func (m *memStore) CommitEntry(_ context.Context, c domain.EntryCommit) error {
	if m.failAppendAfter >= 0 && len(m.records)+len(c.Records) > m.failAppendAfter {
		return errors.New("ledger unavailable")
	}
	for _, rec := range c.Records {
		_, _ = m.AppendContribution(context.Background(), rec)
	}
	switch {
	case c.RowID != 0:
		m.rows[c.RowID-1].ComputedHash = c.Hash
	case c.FileName != "":
		if _, ok := m.stamps[c.Hash]; !ok {
			m.stamps[c.Hash] = domain.Stamp{DedupHash: c.Hash, FileName: c.FileName, Line: c.Line}
		}
	}
	return nil
}

func (m *memStore) HashSeen(_ context.Context, hash string) (bool, error) {
	if _, ok := m.stamps[hash]; ok {
		return true, nil
	}
	for _, r := range m.rows {
		if r.ComputedHash == hash {
			return true, nil
		}
	}
	for _, r := range m.records {
		if r.DedupHash == hash {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) LoadHistory(context.Context) ([]domain.HistoryEntry, error) {
	return m.history, nil
}

func (m *memStore) LoadIdentities(context.Context) ([]domain.Identity, error) {
	return m.identities, nil
}

func (m *memStore) AppendContribution(_ context.Context, rec domain.ContributionRecord) (int64, error) {
	rec.ID = int64(len(m.records) + 1)
	m.records = append(m.records, rec)
	return rec.ID, nil
}

func (m *memStore) UnresolvedPending(_ context.Context, limit int) ([]domain.ContributionRecord, error) {
	var out []domain.ContributionRecord
	for _, r := range m.records {
		if r.IdentityResolved || r.ReviewStatus != domain.ReviewPending {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) MarkResolved(_ context.Context, id int64, name string) error {
	m.records[id-1].ContributorIdentity = name
	m.records[id-1].IdentityResolved = true
	return nil
}

func (m *memStore) MarkResolveFailure(_ context.Context, id int64, attempts int, status domain.ReviewStatus) error {
	m.records[id-1].ResolveAttempts = attempts
	m.records[id-1].ReviewStatus = status
	return nil
}

func (m *memStore) contributors() []string {
	var names []string
	for _, r := range m.records {
		names = append(names, r.ContributorIdentity)
	}
	sort.Strings(names)
	return names
}

// fakeOracle returns fixed answers and counts calls.
type fakeOracle struct {
	verdict       domain.Classification
	handles       []string
	classifyCalls int
	handleCalls   int
}

func (f *fakeOracle) Classify(context.Context, string, string, string) domain.Classification {
	f.classifyCalls++
	return f.verdict
}

func (f *fakeOracle) Contributors(context.Context, string, string, string) []string {
	f.handleCalls++
	return f.handles
}

func (f *fakeOracle) calls() int {
	return f.classifyCalls + f.handleCalls
}

// fakeCompleter answers classification and contributor prompts differently.
type fakeCompleter struct {
	classification string
	contributors   string
	calls          int
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.calls++
	if strings.Contains(prompt, "rubric categories") {
		return f.classification, nil
	}
	return f.contributors, nil
}

// stubLoader serves in-memory transcripts through a real parser.
type stubLoader struct {
	parser  transcript.Parser
	files   map[string]string
	loadErr map[string]error
}

func (s *stubLoader) List(context.Context) ([]domain.TranscriptFile, error) {
	var out []domain.TranscriptFile
	for name := range s.files {
		out = append(out, domain.TranscriptFile{Name: name, Location: "mem://" + name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *stubLoader) Load(_ context.Context, file domain.TranscriptFile, opts transcript.Options) (transcript.Transcript, error) {
	if err := s.loadErr[file.Name]; err != nil {
		return transcript.Transcript{}, err
	}
	raw, ok := s.files[file.Name]
	if !ok {
		return transcript.Transcript{}, errors.New("missing file")
	}
	return s.parser.Parse([]byte(raw), opts)
}

// fakeNotifier records every digest.
type fakeNotifier struct {
	digests []string
}

func (f *fakeNotifier) PublishDigest(_ context.Context, digest string) error {
	f.digests = append(f.digests, digest)
	return nil
}

func testConfig() config.Config {
	return config.Config{
		Pipeline: config.PipelineConfig{
			CutoffDate:         "20250101",
			BatchSize:          100,
			CheckpointEvery:    2,
			Platform:           "Telegram",
			Project:            "",
			ReservedMarkers:    []string{"[INVENTORY MOVEMENT]", "[SALES EVENT]"},
			SystemSenderPrefix: "System",
		},
		Transcripts: config.TranscriptConfig{Platform: "WhatsApp"},
		Oracle: config.OracleConfig{
			Rubric:          []string{"Planting", "Time (Minutes)", "Sales", "Not a contribution"},
			NonContribution: "Not a contribution",
		},
		Reconcile: config.ReconcileConfig{MaxAttempts: 2, BatchSize: 50},
	}
}

func newTestPipeline(cfg config.Config, store *memStore, o Oracle, loader TranscriptLoader) *Pipeline {
	deps := PipelineDeps{
		Rows:        store,
		Checkpoints: store,
		Hashes:      store,
		History:     store,
		Identities:  store,
		Ledger:      store,
		Oracle:      o,
	}
	if loader != nil {
		deps.Transcripts = loader
	}
	p := NewPipeline(cfg, deps)
	p.newRunID = func() string { return "run-1" }
	return p
}
