package rules

import (
	"errors"
	"testing"

	"github.com/scottsmith200544/Firewall-Analysis/internal/model"
)

func addr(a, b, c, d int) uint32 {
	return uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d)
}

func mkPrefix(a uint32, l int, hits, total uint64) model.Prefix {
	p := model.Prefix{Addr: a, Len: l, Hits: hits, Share: float64(hits) / float64(total)}
	p.CIDR = p.String()
	return p
}

func observe(t *Table, src, dst uint32, port uint16, n int) {
	for i := 0; i < n; i++ {
		t.Observe(model.Record{SrcIP: src, DstIP: dst, SrcPort: 40000, DstPort: port})
	}
}

func TestTable_BucketGranularity(t *testing.T) {
	tbl := NewTable(21, 20)

	// 1. Two sources inside the same /21 and one destination.
	observe(tbl, addr(10, 0, 0, 1), addr(192, 168, 0, 1), 443, 3)
	observe(tbl, addr(10, 0, 5, 9), addr(192, 168, 0, 2), 443, 2)

	// 2. Both fold into a single cap-level pair.
	if tbl.Len() != 1 {
		t.Fatalf("expected 1 bucket pair, got %d", tbl.Len())
	}
}

func TestSynthesize_RanksByCoverage(t *testing.T) {
	const total = 100
	tbl := NewTable(21, 20)

	// 1. Three co-occurring pairs with clearly separated volumes.
	observe(tbl, addr(10, 0, 0, 1), addr(192, 168, 0, 1), 443, 60)
	observe(tbl, addr(10, 8, 0, 1), addr(192, 168, 16, 1), 22, 30)
	observe(tbl, addr(10, 16, 0, 1), addr(192, 168, 32, 1), 53, 10)

	src := []model.Prefix{
		mkPrefix(addr(10, 0, 0, 0), 21, 60, total),
		mkPrefix(addr(10, 8, 0, 0), 21, 30, total),
		mkPrefix(addr(10, 16, 0, 0), 21, 10, total),
	}
	dst := []model.Prefix{
		mkPrefix(addr(192, 168, 0, 0), 20, 60, total),
		mkPrefix(addr(192, 168, 16, 0), 20, 30, total),
		mkPrefix(addr(192, 168, 32, 0), 20, 10, total),
	}
	eligible := map[uint16]bool{443: true, 22: true, 53: true}

	rules, err := Synthesize(tbl, src, dst, eligible, total, 15)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(rules))
	}

	// 2. Ordered by descending coverage with 1-based ranks.
	if rules[0].SrcPrefix.CIDR != "10.0.0.0/21" || rules[0].Port != 443 {
		t.Errorf("unexpected top rule: %+v", rules[0])
	}
	if rules[1].SrcPrefix.CIDR != "10.8.0.0/21" || rules[2].SrcPrefix.CIDR != "10.16.0.0/21" {
		t.Errorf("unexpected rule order: %q, %q", rules[1].SrcPrefix.CIDR, rules[2].SrcPrefix.CIDR)
	}
	for i, r := range rules {
		if r.Rank != i+1 {
			t.Errorf("rule %d: rank = %d, want %d", i, r.Rank, i+1)
		}
		if i > 0 && r.Coverage > rules[i-1].Coverage {
			t.Errorf("coverage not descending at rule %d", i)
		}
	}

	// 3. Coverage of the top pair is the marginal product, not the joint share.
	if got, want := rules[0].Coverage, 0.6*0.6; got != want {
		t.Errorf("top coverage = %v, want %v", got, want)
	}
	if rules[0].Hits != 60 {
		t.Errorf("top hits = %d, want 60", rules[0].Hits)
	}
}

func TestSynthesize_TopNCutoff(t *testing.T) {
	const total = 100
	tbl := NewTable(21, 20)

	var src, dst []model.Prefix
	for i := 0; i < 10; i++ {
		s := addr(10, i*8, 0, 0)
		d := addr(192, 168, i*16, 0)
		observe(tbl, s|1, d|1, 443, 10)
		src = append(src, mkPrefix(s, 21, 10, total))
		dst = append(dst, mkPrefix(d, 20, 10, total))
	}

	rules, err := Synthesize(tbl, src, dst, map[uint16]bool{443: true}, total, 3)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("expected exactly 3 rules, got %d", len(rules))
	}

	// Equal coverage everywhere, so order falls back to source address.
	want := []string{"10.0.0.0/21", "10.8.0.0/21", "10.16.0.0/21"}
	for i, r := range rules {
		if r.SrcPrefix.CIDR != want[i] {
			t.Errorf("rule %d: src = %q, want %q", i, r.SrcPrefix.CIDR, want[i])
		}
	}
}

func TestSynthesize_PortAnnotation(t *testing.T) {
	const total = 100
	tbl := NewTable(21, 20)

	// Pair A: mostly an eligible port, with some noise on an ineligible one.
	observe(tbl, addr(10, 0, 0, 1), addr(192, 168, 0, 1), 443, 50)
	observe(tbl, addr(10, 0, 0, 1), addr(192, 168, 0, 1), 31337, 10)
	// Pair B: nothing eligible at all.
	observe(tbl, addr(10, 8, 0, 1), addr(192, 168, 16, 1), 9999, 40)

	src := []model.Prefix{
		mkPrefix(addr(10, 0, 0, 0), 21, 60, total),
		mkPrefix(addr(10, 8, 0, 0), 21, 40, total),
	}
	dst := []model.Prefix{
		mkPrefix(addr(192, 168, 0, 0), 20, 60, total),
		mkPrefix(addr(192, 168, 16, 0), 20, 40, total),
	}

	rules, err := Synthesize(tbl, src, dst, map[uint16]bool{443: true}, total, 15)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(rules))
	}
	if rules[0].Port != 443 {
		t.Errorf("pair A port = %d, want 443", rules[0].Port)
	}
	if rules[1].Port != -1 {
		t.Errorf("pair B port = %d, want -1", rules[1].Port)
	}
	if got := rules[1].PortString(); got != "any" {
		t.Errorf("pair B port string = %q, want \"any\"", got)
	}
}

func TestSynthesize_CoverageClampedToJointShare(t *testing.T) {
	const total = 100
	tbl := NewTable(21, 20)

	// The pair co-occurs in only 10% of records even though each marginal
	// prefix carries 50%: the product estimate must be clamped.
	observe(tbl, addr(10, 0, 0, 1), addr(192, 168, 0, 1), 443, 10)

	src := []model.Prefix{mkPrefix(addr(10, 0, 0, 0), 21, 50, total)}
	dst := []model.Prefix{mkPrefix(addr(192, 168, 0, 0), 20, 50, total)}

	rules, err := Synthesize(tbl, src, dst, map[uint16]bool{443: true}, total, 15)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}
	if got, want := rules[0].Coverage, 0.1; got != want {
		t.Errorf("coverage = %v, want %v", got, want)
	}
}

func TestSynthesize_RejectsNonPositiveTopN(t *testing.T) {
	tbl := NewTable(21, 20)
	observe(tbl, addr(10, 0, 0, 1), addr(192, 168, 0, 1), 443, 1)

	_, err := Synthesize(tbl, nil, nil, nil, 1, 0)
	var cfgErr *model.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if cfgErr.Option != "topN" {
		t.Errorf("ConfigError option = %q, want %q", cfgErr.Option, "topN")
	}
}

func TestSynthesize_EmptyInputs(t *testing.T) {
	tbl := NewTable(21, 20)
	rules, err := Synthesize(tbl, nil, nil, nil, 0, 15)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if rules != nil {
		t.Errorf("expected no rules, got %d", len(rules))
	}
}
