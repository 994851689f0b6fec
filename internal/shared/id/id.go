// Package id provides ID generation for sessions, jobs and staging areas.
//
// Sessions and jobs get prefixed ULIDs so they sort by creation time in logs
// (sess_01H..., job_01H...). Staging directories use random UUIDs: their names
// end up on disk and in privileged target paths, where uniqueness matters and
// ordering does not.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// SessionID identifies a privileged shell session
type SessionID string

// JobID identifies a single command job
type JobID string

// StagingID names an install staging directory
type StagingID string

const (
	SessionPrefix = "sess"
	JobPrefix     = "job"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewSessionID generates a new session ID
func NewSessionID() SessionID {
	return SessionID(Default().GenerateWithPrefix(SessionPrefix))
}

// NewJobID generates a new job ID
func NewJobID() JobID {
	return JobID(Default().GenerateWithPrefix(JobPrefix))
}

// NewStagingID generates a random staging directory name
func NewStagingID() StagingID {
	return StagingID(uuid.NewString())
}

func (id SessionID) String() string { return string(id) }
func (id JobID) String() string     { return string(id) }
func (id StagingID) String() string { return string(id) }

// IsStagingID reports whether name could have been produced by NewStagingID.
func IsStagingID(name string) bool {
	parsed, err := uuid.Parse(name)
	return err == nil && parsed.String() == strings.ToLower(name)
}
