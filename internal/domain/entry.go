package domain

// LogEntry is one normalized message entering the pipeline.
type LogEntry struct {
	// SourceID identifies the origin row ("row:<id>") or transcript line ("<file>:<line>").
	SourceID string
	// RowID is set for chat rows; FileName and Line for transcript entries.
	RowID           int64
	FileName        string
	Line            int
	Platform        string
	Project         string
	SenderHandle    string
	Text            string
	StatusDate      string
	IsSystemMessage bool
	// StoredHash is the idempotence stamp already present on the source row, if any.
	StoredHash string
}

// ChatRow is a materialized chat-platform message as kept in the store.
type ChatRow struct {
	ID           int64
	UpdateID     string
	ChatroomID   string
	ChatroomName string
	MessageID    string
	SenderHandle string
	MessageText  string
	StatusDate   string
	ComputedHash string
}

// Classification is the oracle verdict for a single message.
type Classification struct {
	Category string
	Amount   string
}

// Oracle sentinels.
const (
	CategoryUnknown          = "Unknown"
	CategoryUnexpectedFormat = "Unexpected response format"
	ZeroAmount               = "0.00"
)

// ReviewStatus enumerates the lifecycle of a ledger row.
type ReviewStatus string

const (
	ReviewPending       ReviewStatus = "Pending Review"
	ReviewTransferred   ReviewStatus = "transferred"
	ReviewIgnored       ReviewStatus = "ignored"
	ReviewError         ReviewStatus = "error"
	ReviewResolveFailed ReviewStatus = "RESOLVE FAILED"
)

// ContributionRecord is a row of the scored-output ledger.
type ContributionRecord struct {
	ID                  int64
	ContributorIdentity string
	Project             string
	ContributionText    string
	Rubric              string
	AmountProvisioned   string
	ReviewStatus        ReviewStatus
	AmountIssued        string
	StatusDate          string
	IdentityResolved    bool
	ReportedBy          string
	DedupHash           string
	ResolveAttempts     int
}

// Alias is one handle under which a contributor is known.
type Alias struct {
	Handle   string
	Platform string
}

// Identity is a canonical contributor with its known aliases.
type Identity struct {
	Name    string
	Aliases []Alias
}

// HistoryEntry is a row of the read-only historical ledger.
type HistoryEntry struct {
	Contributor string
	Text        string
}

// Stamp marks a transcript entry as evaluated.
type Stamp struct {
	DedupHash string
	FileName  string
	Line      int
}

// EntryCommit is everything written for one evaluated entry: its ledger
// records and the stamp on its source. It is applied all or nothing.
type EntryCommit struct {
	Hash     string
	RowID    int64
	FileName string
	Line     int
	Records  []ContributionRecord
}
