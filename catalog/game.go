// Package catalog holds the core data model and the precomputed index over
// the game set: facet lists, sort views, and a bounded result-set cache.
package catalog

// GameStatus is the emulator's reported availability of a rom-set.
type GameStatus string

const (
	StatusAvailable  GameStatus = "Available"
	StatusMissing    GameStatus = "Missing"
	StatusIncorrect  GameStatus = "Incorrect"
	StatusWorking    GameStatus = "Working"
	StatusImperfect  GameStatus = "Imperfect"
	StatusNotWorking GameStatus = "NotWorking"
)

// VerificationStatus is the last known verification outcome for a rom-set.
type VerificationStatus string

const (
	VerificationNotVerified VerificationStatus = "NotVerified"
	VerificationVerified    VerificationStatus = "Verified"
	VerificationFailed      VerificationStatus = "Failed"
	VerificationWarning     VerificationStatus = "Warning"
	VerificationNotFound    VerificationStatus = "NotFound"
)

// workingDriverStatuses are the only two driver_status values the upstream
// emitter is known to mean "working" by. Every other value, known or not,
// classifies as not-working. See SPEC_FULL.md open question #1.
var workingDriverStatuses = map[string]bool{
	"good":      true,
	"imperfect": true,
}

// Game is a single catalog record. Once created by the Loader Pipeline,
// only VerificationStatus, PlayCount, and Category may change; every other
// field is immutable for the lifetime of the record.
type Game struct {
	Name         string // unique rom-set id, used as foreign key everywhere
	Description  string
	Manufacturer string
	Year         string

	Driver       string
	DriverStatus string // free-form; see Working()

	Status GameStatus

	Parent      string // name of the parent rom-set, empty if not a clone
	IsBIOS      bool
	IsDevice    bool
	RequiresCHD bool

	Category string // taxonomy label, or "Misc." when unknown
	Controls string

	// ExpectedCRC32 is the CRC32 of the rom-set's first listed ROM file per
	// the metadata source, 0 if the metadata carried no rom/crc attribute.
	// The Verification Store's local fallback compares an archive's actual
	// CRC32 against this value.
	ExpectedCRC32 uint32

	PlayCount          int
	VerificationStatus VerificationStatus
}

// IsClone reports whether this Game is a clone of another rom-set.
func (g *Game) IsClone() bool {
	return g.Parent != ""
}

// Working classifies DriverStatus per the two explicit positive values.
// Unknown values, including ones not yet seen, are not-working by default.
func (g *Game) Working() bool {
	return workingDriverStatuses[g.DriverStatus]
}
