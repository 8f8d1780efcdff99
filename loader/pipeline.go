// Package loader implements the background loader pipeline: a state
// machine driving metadata extraction, ROM directory scanning, and index
// construction, communicating progress to the UI over a single-producer/
// single-consumer channel.
package loader

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/user-none/romcat/catalog"
	"github.com/user-none/romcat/romloader"
	"github.com/user-none/romcat/taxonomy"
)

// State is one of the loader's five states.
type State int

const (
	Idle State = iota
	LoadingMetadata
	ScanningRoms
	Complete
	ErrorState
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case LoadingMetadata:
		return "LoadingMetadata"
	case ScanningRoms:
		return "ScanningRoms"
	case Complete:
		return "Complete"
	case ErrorState:
		return "Error"
	default:
		return "Unknown"
	}
}

// Kind identifies the variant of a Message.
type Kind int

const (
	MetadataStarted Kind = iota
	MetadataProgress
	MetadataComplete
	MetadataFailed
	RomScanStarted
	RomScanProgress
	RomScanComplete
	RomScanFailed
)

// Message is the single flat progress/result envelope sent from the
// background worker to the UI; Kind selects which fields are meaningful,
// matching the teacher's single-struct ScanProgress idiom generalized to
// the loader's larger message set.
type Message struct {
	Kind Kind

	Text string // MetadataProgress, MetadataFailed, RomScanFailed

	Games         []catalog.Game // MetadataComplete, RomScanComplete
	Manufacturers []string       // MetadataComplete

	Current, Total int // RomScanProgress
}

// ErrLoaderBusy is returned by Begin when a load is already in flight.
var ErrLoaderBusy = errors.New("loader: a load is already in progress")

// MetadataSource is the external collaborator that produces a streamed
// metadata record set (e.g. invoking the emulator's "list metadata" mode).
type MetadataSource interface {
	Stream(ctx context.Context) (io.ReadCloser, error)
}

// RomDirectory is one configured, non-recursive scan root.
type RomDirectory struct {
	Path string
}

// Pipeline drives the Idle -> LoadingMetadata -> ScanningRoms -> Complete
// state machine, with an absorbing Error state reachable from either
// active state.
type Pipeline struct {
	metadataSource MetadataSource
	romDirs        []RomDirectory
	extensions     []string
	taxonomy       *taxonomy.Taxonomy

	mu    sync.Mutex
	state State

	messages chan Message
	cancel   context.CancelFunc
}

// New creates a Pipeline in the Idle state.
func New(source MetadataSource, romDirs []RomDirectory, extensions []string, tax *taxonomy.Taxonomy) *Pipeline {
	return &Pipeline{
		metadataSource: source,
		romDirs:        romDirs,
		extensions:     extensions,
		taxonomy:       tax,
		state:          Idle,
	}
}

// State returns the pipeline's current state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Messages returns the channel the UI drains each tick. It is recreated on
// every Begin, so callers must call Messages() again after each Begin.
func (p *Pipeline) Messages() <-chan Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.messages
}

// Begin starts a load. A load invocation while not in {Idle, Complete,
// Error} is ignored with ErrLoaderBusy, per spec.md §4.5's reentry rule.
func (p *Pipeline) Begin(ctx context.Context) error {
	p.mu.Lock()
	if p.state != Idle && p.state != Complete && p.state != ErrorState {
		p.mu.Unlock()
		return ErrLoaderBusy
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.state = LoadingMetadata
	msgCh := make(chan Message, 32)
	p.messages = msgCh
	p.mu.Unlock()

	go p.run(runCtx, msgCh)
	return nil
}

// Cancel cooperatively stops the in-flight load. Workers detect the
// cancelled context at their next send point and terminate.
func (p *Pipeline) Cancel() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Drain reads up to max pending messages without blocking, for the UI's
// per-tick drain loop. It updates the pipeline's own state as it observes
// terminal messages.
func (p *Pipeline) Drain(max int) []Message {
	p.mu.Lock()
	ch := p.messages
	p.mu.Unlock()
	if ch == nil {
		return nil
	}

	var out []Message
	for len(out) < max {
		select {
		case m, ok := <-ch:
			if !ok {
				return out
			}
			p.observe(m)
			out = append(out, m)
		default:
			return out
		}
	}
	return out
}

func (p *Pipeline) observe(m Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch m.Kind {
	case MetadataFailed, RomScanFailed:
		p.state = ErrorState
	case RomScanComplete:
		p.state = Complete
	case RomScanStarted:
		p.state = ScanningRoms
	}
}

func (p *Pipeline) send(ctx context.Context, ch chan<- Message, m Message) bool {
	select {
	case ch <- m:
		return true
	case <-ctx.Done():
		return false
	}
}

// run executes the metadata worker then the ROM scan worker in sequence,
// per spec.md §4.5: metadata failure suppresses the ROM scan; ROM scan
// failure leaves metadata intact (the caller retains whatever games the
// metadata worker already produced).
func (p *Pipeline) run(ctx context.Context, msgCh chan Message) {
	defer close(msgCh)

	if !p.send(ctx, msgCh, Message{Kind: MetadataStarted}) {
		return
	}

	games, manufacturers, err := p.runMetadataWorker(ctx, msgCh)
	if err != nil {
		p.send(ctx, msgCh, Message{Kind: MetadataFailed, Text: err.Error()})
		return
	}
	if !p.send(ctx, msgCh, Message{Kind: MetadataComplete, Games: games, Manufacturers: manufacturers}) {
		return
	}

	if !p.send(ctx, msgCh, Message{Kind: RomScanStarted}) {
		return
	}

	scanned, err := p.runRomScanWorker(ctx, msgCh, games)
	if err != nil {
		p.send(ctx, msgCh, Message{Kind: RomScanFailed, Text: err.Error()})
		return
	}

	p.send(ctx, msgCh, Message{Kind: RomScanComplete, Games: scanned})
}

// machineRecord mirrors the subset of the emulator's "-listxml"-style
// output the core understands; unknown fields are tolerated, absent ones
// default to the zero value, per spec.md §6.
type machineRecord struct {
	XMLName     xml.Name `xml:"machine"`
	Name        string   `xml:"name,attr"`
	CloneOf     string   `xml:"cloneof,attr"`
	IsDevice    string   `xml:"isdevice,attr"`
	IsBIOS      string   `xml:"isbios,attr"`
	Description string   `xml:"description"`
	Year        string   `xml:"year"`
	Manufacturer string  `xml:"manufacturer"`
	Driver      struct {
		Status string `xml:"status,attr"`
	} `xml:"driver"`
	Roms []struct {
		Name string `xml:"name,attr"`
		CRC  string `xml:"crc,attr"`
	} `xml:"rom"`
}

// runMetadataWorker streams and parses machine records, attaches
// categories at parse time (the newer-ordering resolution of spec.md §9's
// open question), derives the deduplicated sorted manufacturer list, and
// reports progress every 500 records.
func (p *Pipeline) runMetadataWorker(ctx context.Context, msgCh chan<- Message) ([]catalog.Game, []string, error) {
	if p.metadataSource == nil {
		return nil, nil, fmt.Errorf("loader: no metadata source configured")
	}

	rc, err := p.metadataSource.Stream(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("loader: failed to start metadata source: %w", err)
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)

	var games []catalog.Game
	manufacturerSet := make(map[string]bool)
	count := 0

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("loader: metadata parse error: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "machine" {
			continue
		}

		var rec machineRecord
		if err := decoder.DecodeElement(&rec, &start); err != nil {
			log.Printf("loader: skipping malformed machine record: %v", err)
			continue
		}
		if rec.Name == "" {
			continue
		}

		g := catalog.Game{
			Name:         rec.Name,
			Description:  rec.Description,
			Manufacturer: rec.Manufacturer,
			Year:         rec.Year,
			Parent:       rec.CloneOf,
			IsDevice:     rec.IsDevice == "yes",
			IsBIOS:       rec.IsBIOS == "yes",
			DriverStatus: rec.Driver.Status,
			Status:       catalog.StatusAvailable,
		}
		if p.taxonomy != nil {
			g.Category = p.taxonomy.Resolve(g.Name, g.Parent)
		} else {
			g.Category = taxonomy.Misc
		}
		if len(rec.Roms) > 0 {
			if crc, err := strconv.ParseUint(rec.Roms[0].CRC, 16, 32); err == nil {
				g.ExpectedCRC32 = uint32(crc)
			}
		}

		games = append(games, g)
		if g.Manufacturer != "" {
			manufacturerSet[g.Manufacturer] = true
		}

		count++
		if count%500 == 0 {
			if !p.send(ctx, msgCh, Message{Kind: MetadataProgress, Text: fmt.Sprintf("%d records parsed", count)}) {
				return nil, nil, context.Canceled
			}
		}
	}

	manufacturers := make([]string, 0, len(manufacturerSet))
	for m := range manufacturerSet {
		manufacturers = append(manufacturers, m)
	}
	sort.Strings(manufacturers)

	return games, manufacturers, nil
}

// runRomScanWorker walks each configured root non-recursively, collects
// archive files of a supported extension, and intersects their stems with
// the metadata-derived game names. Every rom-set is first reset to Missing;
// those with a matching archive stem are then marked Available.
func (p *Pipeline) runRomScanWorker(ctx context.Context, msgCh chan<- Message, games []catalog.Game) ([]catalog.Game, error) {
	byName := make(map[string]int, len(games))
	for i, g := range games {
		byName[g.Name] = i
	}
	out := make([]catalog.Game, len(games))
	copy(out, games)
	for i := range out {
		out[i].Status = catalog.StatusMissing
	}

	var archiveStems []string
	for _, dir := range p.romDirs {
		select {
		case <-ctx.Done():
			return nil, context.Canceled
		default:
		}

		entries, err := romloader.ListArchives(dir.Path, p.extensions)
		if err != nil {
			return nil, fmt.Errorf("loader: scan error on %s: %w", dir.Path, err)
		}
		archiveStems = append(archiveStems, entries...)
	}

	total := len(archiveStems)
	for i, stem := range archiveStems {
		name := strings.TrimSuffix(filepath.Base(stem), filepath.Ext(stem))
		if idx, ok := byName[name]; ok {
			out[idx].Status = catalog.StatusAvailable
		}

		if i%50 == 0 || i == total-1 {
			if !p.send(ctx, msgCh, Message{Kind: RomScanProgress, Current: i + 1, Total: total}) {
				return nil, context.Canceled
			}
		}
	}

	return out, nil
}
