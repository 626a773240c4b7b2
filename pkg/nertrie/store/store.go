package store

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/nertrie/pkg/nertrie/grammar"
)

// Store persists compiled grammars and the results of scan runs.
type Store interface {
	Close() error

	// Rules
	UpsertRules(ctx context.Context, grammarName string, rules []grammar.Rule) error
	Rules(ctx context.Context, grammarName string) ([]grammar.Rule, error)
	Grammars(ctx context.Context) ([]string, error)

	// Runs
	SaveRun(ctx context.Context, r Run) error
	GetRun(ctx context.Context, id string) (Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}

// Run is one batch scan over a set of documents.
type Run struct {
	ID         string
	Grammar    string
	Options    map[string]any
	StartedAt  time.Time
	FinishedAt time.Time
	Docs       int
	// MatchCount is filled by ListRuns, which does not load Matches.
	MatchCount int
	Matches    []Match
}

// Match is one recognized entity in a document of a run.
type Match struct {
	DocID string
	Start int
	End   int
	Text  string
	IDs   []string
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewRunID returns a new, lexically increasing run id.
func NewRunID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Now(), entropy).String()
}
