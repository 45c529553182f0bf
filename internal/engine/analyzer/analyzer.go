package analyzer

import (
	"io"
	"sync"
	"time"

	"github.com/scottsmith200544/Firewall-Analysis/internal/config"
	"github.com/scottsmith200544/Firewall-Analysis/internal/engine/ports"
	"github.com/scottsmith200544/Firewall-Analysis/internal/engine/rules"
	"github.com/scottsmith200544/Firewall-Analysis/internal/engine/trie"
	"github.com/scottsmith200544/Firewall-Analysis/internal/model"
)

// Analyzer accumulates normalized traffic records and derives the analysis
// report: covering prefixes per address family, port statistics, top
// talkers and the ranked candidate rules. It is safe for concurrent use;
// ingestion takes the write lock while Finalize takes a read lock, so a
// snapshot always sees a consistent state.
type Analyzer struct {
	mu      sync.RWMutex
	cfg     config.AnalysisConfig
	src     *trie.Trie
	dst     *trie.Trie
	ports   *ports.Table
	pairs   *rules.Table
	records uint64
	skipped uint64
}

// New validates the analysis options and returns a ready Analyzer. Invalid
// options fail with a ConfigError up front; they are never clamped.
func New(cfg config.AnalysisConfig) (*Analyzer, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	a := &Analyzer{cfg: cfg}
	a.reset()
	return a, nil
}

func validate(cfg config.AnalysisConfig) error {
	if cfg.TopN <= 0 {
		return &model.ConfigError{Option: "topN", Reason: "must be a positive integer"}
	}
	if cfg.IPThreshold <= 0 || cfg.IPThreshold > 1 {
		return &model.ConfigError{Option: "ipThreshold", Reason: "must be in (0, 1]"}
	}
	if cfg.PortThreshold <= 0 || cfg.PortThreshold > 1 {
		return &model.ConfigError{Option: "portThreshold", Reason: "must be in (0, 1]"}
	}
	if cfg.MaxSrcPrefixLen < 0 || cfg.MaxSrcPrefixLen > 32 {
		return &model.ConfigError{Option: "maxSrcPrefixLen", Reason: "must be in [0, 32]"}
	}
	if cfg.MaxDstPrefixLen < 0 || cfg.MaxDstPrefixLen > 32 {
		return &model.ConfigError{Option: "maxDstPrefixLen", Reason: "must be in [0, 32]"}
	}
	if cfg.RareCountCutoff < 0 {
		return &model.ConfigError{Option: "rareCountCutoff", Reason: "must not be negative"}
	}
	if cfg.TopTalkers < 0 {
		return &model.ConfigError{Option: "topTalkers", Reason: "must not be negative"}
	}
	return nil
}

func (a *Analyzer) reset() {
	a.src = trie.New()
	a.dst = trie.New()
	a.ports = ports.New()
	a.pairs = rules.NewTable(a.cfg.MaxSrcPrefixLen, a.cfg.MaxDstPrefixLen)
	a.records = 0
	a.skipped = 0
}

// Observe folds one record into all accumulators.
func (a *Analyzer) Observe(rec model.Record) {
	a.mu.Lock()
	a.observe(rec)
	a.mu.Unlock()
}

// ObserveBatch folds a batch of records under one lock acquisition.
func (a *Analyzer) ObserveBatch(recs []model.Record) {
	a.mu.Lock()
	for _, rec := range recs {
		a.observe(rec)
	}
	a.mu.Unlock()
}

func (a *Analyzer) observe(rec model.Record) {
	a.src.Insert(rec.SrcIP)
	a.dst.Insert(rec.DstIP)
	a.ports.Observe(rec)
	a.pairs.Observe(rec)
	a.records++
}

// AddSkipped adds n to the count of rows rejected before ingestion.
func (a *Analyzer) AddSkipped(n uint64) {
	a.mu.Lock()
	a.skipped += n
	a.mu.Unlock()
}

// Records returns the number of records observed so far.
func (a *Analyzer) Records() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.records
}

// Skipped returns the number of rejected rows counted so far.
func (a *Analyzer) Skipped() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.skipped
}

// Run drains src until it is exhausted, then folds the source's own skip
// count into the totals. The source's fatal errors are returned as-is.
func (a *Analyzer) Run(src model.RecordSource) error {
	for {
		recs, err := src.NextBatch()
		if len(recs) > 0 {
			a.ObserveBatch(recs)
		}
		if err == io.EOF {
			a.AddSkipped(src.Skipped())
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Finalize derives a report from the current state without consuming it:
// repeated calls over unchanged state produce identical results, and
// ingestion may continue afterwards.
func (a *Analyzer) Finalize() (*model.Report, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	srcPrefixes := a.src.Finalize(a.cfg.MaxSrcPrefixLen, a.cfg.IPThreshold)
	dstPrefixes := a.dst.Finalize(a.cfg.MaxDstPrefixLen, a.cfg.IPThreshold)

	// A port qualifies for rule synthesis when it clears the dominance
	// threshold on the destination side and is not rare in absolute terms.
	dominantDst := a.ports.Dominant(model.RoleDst, a.cfg.PortThreshold)
	eligible := make(map[uint16]bool, len(dominantDst))
	for _, ps := range dominantDst {
		if ps.Count >= uint64(a.cfg.RareCountCutoff) {
			eligible[ps.Port] = true
		}
	}

	ranked, err := rules.Synthesize(a.pairs, srcPrefixes, dstPrefixes, eligible, a.records, a.cfg.TopN)
	if err != nil {
		return nil, err
	}

	return &model.Report{
		GeneratedAt:     time.Now().UTC(),
		Rules:           ranked,
		SrcPrefixes:     srcPrefixes,
		DstPrefixes:     dstPrefixes,
		DominantPorts:   append(dominantDst, a.ports.Dominant(model.RoleSrc, a.cfg.PortThreshold)...),
		RarePorts:       a.ports.Rare(a.cfg.RareCountCutoff),
		TopSources:      withRole(a.src.TopAddrs(a.cfg.TopTalkers), model.RoleSrc),
		TopDestinations: withRole(a.dst.TopAddrs(a.cfg.TopTalkers), model.RoleDst),
		TopSrcPorts:     a.ports.Top(model.RoleSrc, a.cfg.TopTalkers),
		TopDstPorts:     a.ports.Top(model.RoleDst, a.cfg.TopTalkers),
		Records:         a.records,
		Skipped:         a.skipped,
	}, nil
}

// Reset discards all accumulated state while keeping the configuration, so
// the next interval of a continuous run starts from zero.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	a.reset()
	a.mu.Unlock()
}

func withRole(stats []model.AddrStat, role model.Role) []model.AddrStat {
	for i := range stats {
		stats[i].Role = role
	}
	return stats
}
