package ports

import (
	"sort"

	"github.com/scottsmith200544/Firewall-Analysis/internal/model"
)

// Table maintains exact observation counts keyed by (role, port).
// No approximation: the port space is small enough that counting maps
// stay bounded regardless of traffic volume.
type Table struct {
	src map[uint16]uint64
	dst map[uint16]uint64
}

// New returns an empty counting table.
func New() *Table {
	return &Table{
		src: make(map[uint16]uint64),
		dst: make(map[uint16]uint64),
	}
}

// Observe counts the two port occurrences of one record.
func (t *Table) Observe(rec model.Record) {
	t.src[rec.SrcPort]++
	t.dst[rec.DstPort]++
}

func (t *Table) forRole(role model.Role) map[uint16]uint64 {
	if role == model.RoleSrc {
		return t.src
	}
	return t.dst
}

// Total returns the number of observations recorded for one role.
func (t *Table) Total(role model.Role) uint64 {
	var total uint64
	for _, c := range t.forRole(role) {
		total += c
	}
	return total
}

// Dominant returns the ports of one role whose share of that role's total
// meets the threshold, sorted by descending count with ties broken by
// ascending port number.
func (t *Table) Dominant(role model.Role, threshold float64) []model.PortStat {
	counts := t.forRole(role)
	total := t.Total(role)
	if total == 0 {
		return nil
	}

	var out []model.PortStat
	for port, c := range counts {
		share := float64(c) / float64(total)
		if share >= threshold {
			out = append(out, model.PortStat{Port: port, Role: role, Count: c, Share: share})
		}
	}
	sortByCount(out)
	return out
}

// Top returns the k most frequent ports of one role regardless of share,
// using the same ordering as Dominant.
func (t *Table) Top(role model.Role, k int) []model.PortStat {
	counts := t.forRole(role)
	total := t.Total(role)
	if total == 0 || k <= 0 {
		return nil
	}

	out := make([]model.PortStat, 0, len(counts))
	for port, c := range counts {
		out = append(out, model.PortStat{Port: port, Role: role, Count: c, Share: float64(c) / float64(total)})
	}
	sortByCount(out)
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// Rare returns the ports observed fewer than cutoff times, for both roles.
// They are anomaly hints, never rule material. Destination entries come
// first, each role block ordered by ascending port.
func (t *Table) Rare(cutoff int) []model.PortStat {
	if cutoff <= 0 {
		return nil
	}

	var out []model.PortStat
	for _, role := range []model.Role{model.RoleDst, model.RoleSrc} {
		counts := t.forRole(role)
		total := t.Total(role)

		var block []model.PortStat
		for port, c := range counts {
			if c < uint64(cutoff) {
				block = append(block, model.PortStat{Port: port, Role: role, Count: c, Share: float64(c) / float64(total)})
			}
		}
		sort.Slice(block, func(i, j int) bool { return block[i].Port < block[j].Port })
		out = append(out, block...)
	}
	return out
}

func sortByCount(stats []model.PortStat) {
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Port < stats[j].Port
	})
}
