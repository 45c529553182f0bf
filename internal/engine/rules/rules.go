package rules

import (
	"sort"

	"github.com/scottsmith200544/Firewall-Analysis/internal/model"
)

// pairKey packs a (source, destination) bucket pair. Buckets are address
// prefixes at the aggregation cap granularity, so the table size is bounded
// by the number of distinct cap-level pairs, not by record volume.
type pairKey uint64

type pairStat struct {
	hits  uint64
	ports map[uint16]uint64
}

// Table accumulates joint source/destination prefix evidence in a single
// streaming pass, together with a destination-port histogram per pair.
// Accepted prefixes are always at least as broad as the cap, so finalize
// can aggregate these buckets under any accepted prefix set.
type Table struct {
	srcShift uint
	dstShift uint
	pairs    map[pairKey]*pairStat
}

// NewTable creates a pair table bucketing sources at /maxSrcLen and
// destinations at /maxDstLen.
func NewTable(maxSrcLen, maxDstLen int) *Table {
	return &Table{
		srcShift: uint(32 - maxSrcLen),
		dstShift: uint(32 - maxDstLen),
		pairs:    make(map[pairKey]*pairStat),
	}
}

// Observe counts one record's bucket pair and destination port.
func (t *Table) Observe(rec model.Record) {
	key := pairKey(rec.SrcIP>>t.srcShift)<<32 | pairKey(rec.DstIP>>t.dstShift)
	s, ok := t.pairs[key]
	if !ok {
		s = &pairStat{ports: make(map[uint16]uint64)}
		t.pairs[key] = s
	}
	s.hits++
	s.ports[rec.DstPort]++
}

// Len returns the number of distinct bucket pairs observed.
func (t *Table) Len() int {
	return len(t.pairs)
}

// ruleKey identifies one (source prefix, destination prefix) pair after
// buckets have been folded under the accepted prefixes.
type ruleKey struct {
	srcAddr uint32
	srcLen  int
	dstAddr uint32
	dstLen  int
}

type ruleAgg struct {
	src   model.Prefix
	dst   model.Prefix
	hits  uint64
	ports map[uint16]uint64
}

// Synthesize folds the observed bucket pairs under the accepted prefix
// sets and produces the ranked candidate rules.
//
// One rule is emitted per (source prefix, destination prefix) pair that
// actually co-occurred. A rule is annotated with the pair's most frequent
// destination port among the eligible set; if none of the pair's ports is
// eligible the rule carries no port restriction. Estimated coverage is the
// product of the two prefixes' independent shares, clamped to the observed
// joint share. Rules are ranked by coverage, and only the top topN are
// returned.
func Synthesize(t *Table, srcPrefixes, dstPrefixes []model.Prefix, eligible map[uint16]bool, total uint64, topN int) ([]model.CandidateRule, error) {
	if topN <= 0 {
		return nil, &model.ConfigError{Option: "topN", Reason: "must be a positive integer"}
	}
	if total == 0 || len(srcPrefixes) == 0 || len(dstPrefixes) == 0 {
		return nil, nil
	}

	srcSorted := sortByAddr(srcPrefixes)
	dstSorted := sortByAddr(dstPrefixes)

	agg := make(map[ruleKey]*ruleAgg)
	for key, stat := range t.pairs {
		srcAddr := uint32(key>>32) << t.srcShift
		dstAddr := uint32(key) << t.dstShift

		sp, ok := covering(srcSorted, srcAddr)
		if !ok {
			continue
		}
		dp, ok := covering(dstSorted, dstAddr)
		if !ok {
			continue
		}

		rk := ruleKey{srcAddr: sp.Addr, srcLen: sp.Len, dstAddr: dp.Addr, dstLen: dp.Len}
		a, ok := agg[rk]
		if !ok {
			a = &ruleAgg{src: sp, dst: dp, ports: make(map[uint16]uint64)}
			agg[rk] = a
		}
		a.hits += stat.hits
		for port, c := range stat.ports {
			a.ports[port] += c
		}
	}

	rules := make([]model.CandidateRule, 0, len(agg))
	for _, a := range agg {
		coverage := a.src.Share * a.dst.Share
		if joint := float64(a.hits) / float64(total); joint < coverage {
			coverage = joint
		}
		rules = append(rules, model.CandidateRule{
			SrcPrefix: a.src,
			DstPrefix: a.dst,
			Port:      dominantPairPort(a.ports, eligible),
			Coverage:  coverage,
			Hits:      a.hits,
		})
	}

	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Coverage != rules[j].Coverage {
			return rules[i].Coverage > rules[j].Coverage
		}
		if rules[i].Hits != rules[j].Hits {
			return rules[i].Hits > rules[j].Hits
		}
		if rules[i].SrcPrefix.Addr != rules[j].SrcPrefix.Addr {
			return rules[i].SrcPrefix.Addr < rules[j].SrcPrefix.Addr
		}
		return rules[i].DstPrefix.Addr < rules[j].DstPrefix.Addr
	})

	if len(rules) > topN {
		rules = rules[:topN]
	}
	for i := range rules {
		rules[i].Rank = i + 1
	}
	return rules, nil
}

// dominantPairPort picks the pair's most frequent destination port among
// the eligible set, ties broken by the smaller port number. It returns -1
// when no eligible port was observed for the pair.
func dominantPairPort(histogram map[uint16]uint64, eligible map[uint16]bool) int {
	best := -1
	var bestCount uint64
	for port, c := range histogram {
		if !eligible[port] {
			continue
		}
		if c > bestCount || (c == bestCount && best >= 0 && int(port) < best) {
			best = int(port)
			bestCount = c
		}
	}
	return best
}

func sortByAddr(prefixes []model.Prefix) []model.Prefix {
	sorted := make([]model.Prefix, len(prefixes))
	copy(sorted, prefixes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Addr < sorted[j].Addr })
	return sorted
}

// covering finds the accepted prefix containing addr. Accepted prefixes
// are disjoint, so at most one can match: the nearest one at or below addr.
func covering(sorted []model.Prefix, addr uint32) (model.Prefix, bool) {
	i := sort.Search(len(sorted), func(i int) bool { return sorted[i].Addr > addr }) - 1
	if i < 0 {
		return model.Prefix{}, false
	}
	p := sorted[i]
	if p.Len == 0 {
		return p, true
	}
	mask := uint32(0xFFFFFFFF) << (32 - p.Len)
	if addr&mask == p.Addr {
		return p, true
	}
	return model.Prefix{}, false
}
