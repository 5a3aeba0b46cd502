package checkout

import (
	"fmt"
	"os"
	"sort"
	"syscall"

	"github.com/gitkit/parafs/internal/convert"
	"github.com/gitkit/parafs/internal/indexentry"
	"github.com/gitkit/parafs/internal/item"
	"github.com/gitkit/parafs/internal/objectstore"
	"github.com/gitkit/parafs/internal/smudge"
	"github.com/gitkit/parafs/internal/wireproto"
)

// Config tunes the coordinator: the parallel-checkout threshold and the
// helper pool shape.
type Config struct {
	Threshold    int
	Helpers      int
	PreloadLimit int
	Writers      int
}

// EligibleEntry pairs an index entry with its position in the eligible
// vector and its assigned helper.
type EligibleEntry struct {
	Pos      int // position in the eligible vector ("pc_nr")
	HelperNr int // helper assigned: Pos mod Helpers
	HelperIx int // position within that helper's item vector
	Entry    indexentry.Entry
}

// CollisionReport names index entries whose parallel create failed because
// another entry wrote the same path first.
type CollisionReport struct {
	Paths []string
}

// Result is the final outcome for one eligible entry.
type Result struct {
	Entry    indexentry.Entry
	ErrClass item.ErrorClass
	Errno    int
	Stat     item.StatResult
}

// Spawner starts one helper subprocess and returns its Conn.
type Spawner func(helperNr int, cfg Config) (Conn, error)

// Coordinator drives the populator's foreground side.
type Coordinator struct {
	cfg        Config
	classifier convert.Classifier
	converter  convert.Converter
	store      objectstore.Store
	spawn      Spawner
}

// New builds a Coordinator. converter and store are used only for the
// sequential collision-retry path; the parallel path's conversion and
// object reads happen inside the helper.
func New(cfg Config, classifier convert.Classifier, converter convert.Converter, store objectstore.Store, spawn Spawner) *Coordinator {
	return &Coordinator{cfg: cfg, classifier: classifier, converter: converter, store: store, spawn: spawn}
}

// BuildEligible evaluates conversion attributes in index order, since that
// order keeps the attribute stack consistent, and returns the entries
// eligible for parallel population.
func (c *Coordinator) BuildEligible(idx indexentry.Index) []EligibleEntry {
	var out []EligibleEntry
	perHelperIx := make(map[int]int)
	pos := 0
	for _, e := range idx.Entries() {
		if !e.NeedsUpdate || !e.RegularFile() {
			continue
		}
		if !c.classifier.Classify(e.Attrs).Eligible() {
			continue
		}
		helperNr := pos % c.cfg.Helpers
		out = append(out, EligibleEntry{
			Pos:      pos,
			HelperNr: helperNr,
			HelperIx: perHelperIx[helperNr],
			Entry:    e,
		})
		perHelperIx[helperNr]++
		pos++
	}
	return out
}

// ShouldParallelize reports whether the updatable regular-file count
// exceeds the configured threshold: the helper pool is spawned iff
// count > threshold.
func (c *Coordinator) ShouldParallelize(idx indexentry.Index) bool {
	count := 0
	for _, e := range idx.Entries() {
		if e.NeedsUpdate && e.RegularFile() {
			count++
		}
	}
	return count > c.cfg.Threshold
}

// queueRecord builds the wire record for one eligible entry.
func queueRecord(ee EligibleEntry) wireproto.QueueRecord {
	r := wireproto.QueueRecord{
		PCNr:       uint32(ee.Pos),
		HelperNr:   uint32(ee.HelperIx),
		Mode:       ee.Entry.Mode,
		AttrAction: uint8(ee.Entry.Attrs.AttrAction),
		CRLFAction: uint8(ee.Entry.Attrs.CRLFAction),
		Encoding:   ee.Entry.Attrs.WorkingTreeEncoding,
		Name:       ee.Entry.Path,
	}
	if ee.Entry.Attrs.Ident {
		r.Ident = 1
	}
	copy(r.OID[:], ee.Entry.OID)
	return r
}

// RunSync executes the synchronous branch-switch mode: for each item in
// index order, widen the watermark by one then block for its result.
func (c *Coordinator) RunSync(entries []EligibleEntry, conns []Conn) ([]Result, error) {
	if err := c.enqueueAll(entries, conns); err != nil {
		return nil, err
	}
	results := make([]Result, len(entries))
	for _, ee := range entries {
		conn := conns[ee.HelperNr]
		if err := conn.SetWatermark(ee.HelperIx + 1); err != nil {
			return nil, fmt.Errorf("checkout: helper %d set watermark: %w", ee.HelperNr, err)
		}
		rec, err := conn.Get1(ee.HelperIx)
		if err != nil {
			return nil, fmt.Errorf("checkout: helper %d get1 %d: %w", ee.HelperNr, ee.HelperIx, err)
		}
		results[ee.Pos] = resultFromRecord(ee.Entry, rec)
	}
	return results, nil
}

// RunAsync executes the asynchronous clone mode: enqueue everything,
// release every helper with AUTO, then drain with mget.
func (c *Coordinator) RunAsync(entries []EligibleEntry, conns []Conn) ([]Result, error) {
	if err := c.enqueueAll(entries, conns); err != nil {
		return nil, err
	}
	for _, conn := range conns {
		if err := conn.SetWatermark(item.Auto); err != nil {
			return nil, fmt.Errorf("checkout: broadcasting AUTO watermark: %w", err)
		}
	}

	perHelperCount := make(map[int]int)
	for _, ee := range entries {
		if ee.HelperIx+1 > perHelperCount[ee.HelperNr] {
			perHelperCount[ee.HelperNr] = ee.HelperIx + 1
		}
	}

	byHelperIx := make(map[int]map[int]EligibleEntry)
	for _, ee := range entries {
		if byHelperIx[ee.HelperNr] == nil {
			byHelperIx[ee.HelperNr] = map[int]EligibleEntry{}
		}
		byHelperIx[ee.HelperNr][ee.HelperIx] = ee
	}

	results := make([]Result, len(entries))
	for helperNr, conn := range conns {
		n := perHelperCount[helperNr]
		if n == 0 {
			continue
		}
		recs, err := conn.Mget(0, n)
		if err != nil {
			return nil, fmt.Errorf("checkout: helper %d mget: %w", helperNr, err)
		}
		for i, rec := range recs {
			ee := byHelperIx[helperNr][i]
			results[ee.Pos] = resultFromRecord(ee.Entry, rec)
		}
	}
	return results, nil
}

func (c *Coordinator) enqueueAll(entries []EligibleEntry, conns []Conn) error {
	byHelper := make(map[int][]wireproto.QueueRecord)
	for _, ee := range entries {
		byHelper[ee.HelperNr] = append(byHelper[ee.HelperNr], queueRecord(ee))
	}
	for helperNr, recs := range byHelper {
		if err := conns[helperNr].Queue(recs); err != nil {
			return fmt.Errorf("checkout: helper %d queue: %w", helperNr, err)
		}
	}
	return nil
}

func resultFromRecord(e indexentry.Entry, rec wireproto.ResultRecord) Result {
	return Result{
		Entry:    e,
		ErrClass: item.ErrorClass(rec.ErrorClass),
		Errno:    int(rec.Errno),
		Stat:     item.StatResult{Size: int64(rec.Stat.Size), Mode: rec.Stat.Mode},
	}
}

// isCollisionCandidate reports whether a result's Open failure is one of
// the errno values the foreground retries sequentially.
func isCollisionCandidate(r Result) bool {
	if r.ErrClass != item.Open {
		return false
	}
	switch syscall.Errno(r.Errno) {
	case syscall.EEXIST, syscall.EISDIR, syscall.ENOTDIR, syscall.ENOENT:
		return true
	default:
		return false
	}
}

// CollisionRetry re-runs the classic sequential write path for every
// result that failed with a collision-candidate error, then reports all
// entries whose paths collided. Results slice is updated in place.
func (c *Coordinator) CollisionRetry(results []Result) *CollisionReport {
	var retry []int
	for i, r := range results {
		if isCollisionCandidate(r) {
			retry = append(retry, i)
		}
	}
	if len(retry) == 0 {
		return nil
	}

	var collided []string
	for _, i := range retry {
		e := results[i].Entry
		_, _, data, err := c.store.ReadObject(e.OID)
		if err != nil {
			results[i] = Result{Entry: e, ErrClass: item.Load, Errno: 0}
			continue
		}
		it := &item.Item{Path: e.Path, Mode: e.Mode, Attrs: e.Attrs, Content: data}
		class, errno, stat := smudge.Write(c.converter, it)
		results[i] = Result{Entry: e, ErrClass: class, Errno: errno, Stat: stat}
		if class == item.Open {
			collided = append(collided, e.Path)
		}
	}
	if len(collided) == 0 {
		return nil
	}
	// Add the entries that did get written but now share a file with a
	// collided path (the entry that won the race for that path).
	for _, r := range results {
		if r.ErrClass != item.Ok {
			continue
		}
		fi, err := os.Lstat(r.Entry.Path)
		if err != nil {
			continue
		}
		for _, p := range collided {
			if other, err := os.Lstat(p); err == nil && os.SameFile(fi, other) {
				collided = append(collided, r.Entry.Path)
				break
			}
		}
	}
	sort.Strings(collided)
	return &CollisionReport{Paths: collided}
}

// Shutdown closes every helper connection: each closes its stdin, joins
// its internal threads, and exits.
func (c *Coordinator) Shutdown(conns []Conn) error {
	var firstErr error
	for _, conn := range conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
