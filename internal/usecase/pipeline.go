package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"ContributionScorer/internal/checkpoint"
	"ContributionScorer/internal/config"
	"ContributionScorer/internal/dedup"
	"ContributionScorer/internal/domain"
	"ContributionScorer/internal/events"
	"ContributionScorer/internal/filter"
	"ContributionScorer/internal/identity"
	"ContributionScorer/internal/oracle"
	"ContributionScorer/internal/ports"
	"ContributionScorer/internal/transcript"
	"ContributionScorer/pkg/logger"
)

// Oracle classifies free text and names its contributors.
type Oracle interface {
	Classify(ctx context.Context, text, sender, platform string) domain.Classification
	Contributors(ctx context.Context, text, sender, platform string) []string
}

// TranscriptLoader lists transcript files and parses one of them.
type TranscriptLoader interface {
	List(ctx context.Context) ([]domain.TranscriptFile, error)
	Load(ctx context.Context, file domain.TranscriptFile, opts transcript.Options) (transcript.Transcript, error)
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Rows        ports.ChatRowSource
	Transcripts TranscriptLoader
	Checkpoints ports.CheckpointStore
	Hashes      ports.HashLookup
	History     ports.HistoryReader
	Identities  ports.IdentityReader
	Ledger      ports.EntryCommitter
	Oracle      Oracle
	Notifier    ports.Notifier
	Logger      *slog.Logger
}

// Pipeline implements the ingest, filter, dedup, classify, resolve and
// persist workflow over chat rows and transcript files.
type Pipeline struct {
	rows        ports.ChatRowSource
	transcripts TranscriptLoader
	hashes      ports.HashLookup
	history     ports.HistoryReader
	identities  ports.IdentityReader
	oracle      Oracle
	notifier    ports.Notifier
	tracker     *checkpoint.Tracker
	writer      *Writer
	classifier  *events.Classifier
	filter      *filter.Filter
	logger      *slog.Logger

	batchSize        int
	budget           time.Duration
	cutoff           int
	platform         string
	project          string
	transcriptSource string
	systemPrefix     string
	nonContribution  string

	now      func() time.Time
	newRunID func() string
}

// NewPipeline constructs the orchestration component.
func NewPipeline(cfg config.Config, deps PipelineDeps) *Pipeline {
	o := deps.Oracle
	if o == nil {
		o = oracle.New(nil, oracle.Options{Rubric: cfg.Oracle.Rubric, Logger: deps.Logger})
	}

	var tracker *checkpoint.Tracker
	if deps.Checkpoints != nil {
		tracker = checkpoint.NewTracker(deps.Checkpoints, cfg.Pipeline.CheckpointEvery)
	}

	transcriptPlatform := cfg.Transcripts.Platform
	if transcriptPlatform == "" {
		transcriptPlatform = cfg.Pipeline.Platform
	}

	return &Pipeline{
		rows:             deps.Rows,
		transcripts:      deps.Transcripts,
		hashes:           deps.Hashes,
		history:          deps.History,
		identities:       deps.Identities,
		oracle:           o,
		notifier:         deps.Notifier,
		tracker:          tracker,
		writer:           NewWriter(deps.Ledger),
		classifier:       events.NewClassifier(cfg.Pipeline.ReservedMarkers),
		filter:           filter.New(cfg.Pipeline.Cutoff()),
		logger:           logger.OrDiscard(deps.Logger),
		batchSize:        cfg.Pipeline.BatchSize,
		budget:           cfg.Pipeline.Budget(),
		cutoff:           cfg.Pipeline.Cutoff(),
		platform:         cfg.Pipeline.Platform,
		project:          cfg.Pipeline.Project,
		transcriptSource: transcriptPlatform,
		systemPrefix:     cfg.Pipeline.SystemSenderPrefix,
		nonContribution:  strings.TrimSpace(cfg.Oracle.NonContribution),
		now:              time.Now,
		newRunID:         uuid.NewString,
	}
}

// slice is the state shared by every entry of one run.
type slice struct {
	index    *dedup.Index
	resolver *identity.Resolver
	summary  *Summary
	logger   *slog.Logger
}

type outcome int

const (
	outcomeStamped outcome = iota
	outcomeFiltered
	outcomeHistory
	outcomeDuplicate
	outcomeScored
)

// RunSlice processes one bounded batch of chat rows and then as many
// transcript lines as the time budget allows. An exhausted budget is not an
// error: unstamped rows and unconsumed lines are picked up by the next slice.
func (p *Pipeline) RunSlice(ctx context.Context) (Summary, error) {
	summary := Summary{RunID: p.newRunID(), Started: p.now()}
	log := p.logger.With("run_id", summary.RunID)

	if p.budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.budget)
		defer cancel()
	}

	s, err := p.prepare(ctx, &summary, log)
	if err != nil {
		return summary, err
	}

	var errs []error
	if err := p.processRows(ctx, s); err != nil {
		errs = append(errs, fmt.Errorf("process rows: %w", err))
	}
	if ctx.Err() == nil {
		if err := p.processTranscripts(ctx, s); err != nil {
			errs = append(errs, fmt.Errorf("process transcripts: %w", err))
		}
	}

	summary.BudgetExhausted = errors.Is(ctx.Err(), context.DeadlineExceeded)
	summary.Finished = p.now()

	log.Info("slice finished",
		"evaluated", summary.Evaluated,
		"scored", summary.Scored,
		"records", summary.Records,
		"unresolved", summary.Unresolved,
		"filtered", summary.Filtered,
		"duplicates", summary.Duplicates,
		"history", summary.History,
		"fallbacks", summary.Fallbacks,
		"files_failed", len(summary.FilesFailed),
		"budget_exhausted", summary.BudgetExhausted,
	)

	p.notify(context.WithoutCancel(ctx), summary, log)
	return summary, errors.Join(errs...)
}

func (p *Pipeline) prepare(ctx context.Context, summary *Summary, log *slog.Logger) (*slice, error) {
	var history []domain.HistoryEntry
	if p.history != nil {
		var err error
		history, err = p.history.LoadHistory(ctx)
		if err != nil {
			return nil, fmt.Errorf("load history: %w", err)
		}
	}

	var directory []domain.Identity
	if p.identities != nil {
		var err error
		directory, err = p.identities.LoadIdentities(ctx)
		if err != nil {
			return nil, fmt.Errorf("load identities: %w", err)
		}
	}

	log.Debug("slice prepared", "history", len(history), "identities", len(directory))

	return &slice{
		index:    dedup.NewIndex(p.hashes, history),
		resolver: identity.NewResolver(directory),
		summary:  summary,
		logger:   log,
	}, nil
}

func (p *Pipeline) processRows(ctx context.Context, s *slice) error {
	if p.rows == nil {
		return nil
	}

	rows, err := p.rows.PendingRows(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("load pending rows: %w", err)
	}

	for _, row := range rows {
		if ctx.Err() != nil {
			return nil
		}
		if err := p.processEntry(ctx, s, p.rowEntry(row)); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
	return nil
}

func (p *Pipeline) processTranscripts(ctx context.Context, s *slice) error {
	if p.transcripts == nil || p.tracker == nil {
		return nil
	}

	files, err := p.transcripts.List(ctx)
	if err != nil {
		return fmt.Errorf("list transcripts: %w", err)
	}

	for _, file := range files {
		if ctx.Err() != nil {
			return nil
		}
		if err := p.processFile(ctx, s, file); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// a failed file does not stop the others
			s.summary.FilesFailed = append(s.summary.FilesFailed, file.Name)
			s.logger.Error("transcript failed", "file", file.Name, "error", err)
		}
	}
	return nil
}

func (p *Pipeline) processFile(ctx context.Context, s *slice, file domain.TranscriptFile) error {
	parsed, err := p.transcripts.Load(ctx, file, transcript.Options{
		Cutoff:       p.cutoff,
		SystemPrefix: p.systemPrefix,
	})
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		if markErr := p.tracker.MarkFailed(context.WithoutCancel(ctx), file); markErr != nil {
			return errors.Join(err, markErr)
		}
		return fmt.Errorf("load: %w", err)
	}

	session, ok, err := p.tracker.Begin(ctx, file, parsed.TotalLines)
	if err != nil {
		return err
	}
	if !ok {
		s.summary.FilesSkipped++
		s.logger.Debug("transcript unchanged", "file", file.Name)
		return nil
	}

	start := session.StartLine()
	s.logger.Debug("transcript resumed", "file", file.Name, "start_line", start, "total_lines", parsed.TotalLines)

	detached := context.WithoutCancel(ctx)
	for rec := range parsed.From(start) {
		if ctx.Err() != nil {
			break
		}
		if err := p.processEntry(ctx, s, p.transcriptEntry(file, rec)); err != nil {
			if ctx.Err() != nil {
				break
			}
			if failErr := session.Fail(detached); failErr != nil {
				return errors.Join(err, failErr)
			}
			return fmt.Errorf("line %d: %w", rec.Line, err)
		}
		if err := session.Advance(ctx, rec.Line); err != nil {
			if ctx.Err() != nil {
				break
			}
			if failErr := session.Fail(detached); failErr != nil {
				return errors.Join(err, failErr)
			}
			return err
		}
	}

	if ctx.Err() != nil {
		return session.Flush(detached)
	}
	if err := session.Complete(detached); err != nil {
		return err
	}
	s.summary.FilesDone++
	return nil
}

// processEntry runs one entry through filter, dedup, scoring and the writer.
// It returns an error only for store failures or an expired context.
func (p *Pipeline) processEntry(ctx context.Context, s *slice, e domain.LogEntry) error {
	out, err := p.evaluate(ctx, s, e)
	if err != nil {
		return err
	}

	s.summary.Evaluated++
	switch out {
	case outcomeFiltered:
		s.summary.Filtered++
	case outcomeHistory:
		s.summary.History++
	case outcomeDuplicate:
		s.summary.Duplicates++
	case outcomeScored:
		s.summary.Scored++
	}
	return nil
}

func (p *Pipeline) evaluate(ctx context.Context, s *slice, e domain.LogEntry) (outcome, error) {
	if e.StoredHash != "" {
		return outcomeStamped, nil
	}

	key := dedup.EntryKey(e)
	ev := p.classifier.Classify(e.Text)

	if reason := p.filter.Check(e, ev); reason != filter.Accepted {
		s.logger.Debug("entry filtered", "source", e.SourceID, "reason", string(reason), "marker", ev.Marker)
		return outcomeFiltered, p.stamp(ctx, s, e, key)
	}

	reporter, _ := s.resolver.Resolve(e.SenderHandle, e.Platform)
	if s.index.InHistory(e.Text, e.SenderHandle, reporter) {
		s.logger.Debug("entry already in history", "source", e.SourceID)
		return outcomeHistory, p.stamp(ctx, s, e, key)
	}

	seen, err := s.index.Seen(ctx, key)
	if err != nil {
		return 0, err
	}
	if seen {
		s.logger.Debug("entry already processed", "source", e.SourceID, "hash", key)
		return outcomeDuplicate, p.stamp(ctx, s, e, key)
	}

	records, fallback := p.score(ctx, s, e, ev, reporter)
	// a verdict produced after the budget expired is a transport sentinel
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if err := p.writer.Write(ctx, e, key, records); err != nil {
		return 0, err
	}
	s.index.Mark(key)

	if fallback {
		s.summary.Fallbacks++
	}
	s.summary.Records += len(records)
	for _, rec := range records {
		if !rec.IdentityResolved {
			s.summary.Unresolved++
		}
	}
	return outcomeScored, nil
}

func (p *Pipeline) stamp(ctx context.Context, s *slice, e domain.LogEntry, key string) error {
	if err := p.writer.Stamp(ctx, e, key); err != nil {
		return err
	}
	s.index.Mark(key)
	return nil
}

// score builds one record per contributor. A contribution block is
// authoritative for contributors and amount; the oracle fills the category
// when the block carries none. A plain message the oracle files under the
// non-contribution category yields no records.
func (p *Pipeline) score(ctx context.Context, s *slice, e domain.LogEntry, ev events.Event, reporter string) ([]domain.ContributionRecord, bool) {
	var (
		category string
		amount   string
		handles  []string
		fallback bool
	)

	if ev.Kind == events.KindContribution {
		c := ev.Contribution
		category = c.Type
		if category == "" {
			category = p.oracle.Classify(ctx, e.Text, e.SenderHandle, e.Platform).Category
			fallback = isSentinel(category)
		}
		amount = c.TokenAmount
		handles = c.Contributors
	} else {
		if ev.BlockErr != nil {
			s.logger.Warn("malformed contribution block", "source", e.SourceID, "error", ev.BlockErr)
		}
		verdict := p.oracle.Classify(ctx, e.Text, e.SenderHandle, e.Platform)
		category, amount = verdict.Category, verdict.Amount
		fallback = isSentinel(category)
		if p.nonContribution != "" && strings.EqualFold(strings.TrimSpace(category), p.nonContribution) {
			return nil, false
		}
		handles = p.oracle.Contributors(ctx, e.Text, e.SenderHandle, e.Platform)
	}

	if len(handles) == 0 {
		handles = []string{e.SenderHandle}
	}
	if reporter == "" {
		reporter = strings.TrimSpace(e.SenderHandle)
	}

	seen := map[string]struct{}{}
	records := make([]domain.ContributionRecord, 0, len(handles))
	for _, h := range handles {
		name, resolved := s.resolver.Resolve(h, e.Platform)
		if name == "" {
			continue
		}
		k := strings.ToLower(name)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}

		records = append(records, domain.ContributionRecord{
			ContributorIdentity: name,
			Project:             e.Project,
			ContributionText:    e.Text,
			Rubric:              category,
			AmountProvisioned:   amount,
			ReviewStatus:        domain.ReviewPending,
			StatusDate:          e.StatusDate,
			IdentityResolved:    resolved,
			ReportedBy:          reporter,
		})
	}
	return records, fallback
}

func (p *Pipeline) rowEntry(r domain.ChatRow) domain.LogEntry {
	project := r.ChatroomName
	if project == "" {
		project = p.project
	}
	return domain.LogEntry{
		SourceID:        fmt.Sprintf("row:%d", r.ID),
		RowID:           r.ID,
		Platform:        p.platform,
		Project:         project,
		SenderHandle:    r.SenderHandle,
		Text:            r.MessageText,
		StatusDate:      r.StatusDate,
		IsSystemMessage: p.systemPrefix != "" && strings.HasPrefix(r.SenderHandle, p.systemPrefix),
		StoredHash:      r.ComputedHash,
	}
}

func (p *Pipeline) transcriptEntry(file domain.TranscriptFile, rec transcript.Record) domain.LogEntry {
	project := p.project
	if project == "" {
		project = strings.TrimSuffix(file.Name, filepath.Ext(file.Name))
	}
	return domain.LogEntry{
		SourceID:        fmt.Sprintf("%s:%d", file.Name, rec.Line),
		FileName:        file.Name,
		Line:            rec.Line,
		Platform:        p.transcriptSource,
		Project:         project,
		SenderHandle:    rec.Sender,
		Text:            rec.Message,
		StatusDate:      rec.Date,
		IsSystemMessage: rec.IsSystem,
	}
}

func (p *Pipeline) notify(ctx context.Context, summary Summary, log *slog.Logger) {
	if p.notifier == nil || summary.Idle() {
		return
	}
	if err := p.notifier.PublishDigest(ctx, summary.Message()); err != nil {
		log.Warn("run summary not delivered", "error", err)
	}
}

func isSentinel(category string) bool {
	return category == domain.CategoryUnknown || category == domain.CategoryUnexpectedFormat
}
