package ports

import (
	"testing"

	"github.com/scottsmith200544/Firewall-Analysis/internal/model"
)

func observeN(t *Table, n int, srcPort, dstPort uint16) {
	for i := 0; i < n; i++ {
		t.Observe(model.Record{SrcPort: srcPort, DstPort: dstPort})
	}
}

func TestDominant_FullShare(t *testing.T) {
	// 1000 records all to destination port 53: the port is dominant with
	// share 1.0.
	tbl := New()
	observeN(tbl, 1000, 40000, 53)

	dom := tbl.Dominant(model.RoleDst, 0.01)
	if len(dom) != 1 {
		t.Fatalf("Expected 1 dominant destination port, got %d", len(dom))
	}
	if dom[0].Port != 53 || dom[0].Count != 1000 {
		t.Errorf("Expected port 53 with 1000 hits, got %d with %d", dom[0].Port, dom[0].Count)
	}
	if dom[0].Share != 1.0 {
		t.Errorf("Expected share 1.0, got %f", dom[0].Share)
	}
}

func TestDominant_ThresholdBoundary(t *testing.T) {
	// 95 of 100 observations on one port with a 0.95 threshold: the share
	// comparison must hold exactly at the boundary.
	tbl := New()
	observeN(tbl, 95, 1000, 443)
	observeN(tbl, 5, 1000, 8443)

	dom := tbl.Dominant(model.RoleDst, 0.95)
	if len(dom) != 1 || dom[0].Port != 443 {
		t.Fatalf("Expected only port 443 to be dominant at the 0.95 boundary, got %v", dom)
	}
}

func TestDominant_Ordering(t *testing.T) {
	tbl := New()
	observeN(tbl, 50, 1, 80)
	observeN(tbl, 30, 1, 443)
	observeN(tbl, 30, 1, 22)

	dom := tbl.Dominant(model.RoleDst, 0.01)
	if len(dom) != 3 {
		t.Fatalf("Expected 3 dominant ports, got %d", len(dom))
	}
	// Descending count, then ascending port for the tie.
	if dom[0].Port != 80 || dom[1].Port != 22 || dom[2].Port != 443 {
		t.Errorf("Expected order 80, 22, 443, got %d, %d, %d", dom[0].Port, dom[1].Port, dom[2].Port)
	}
}

func TestRare_BothRoles(t *testing.T) {
	tbl := New()
	// Port 23 appears 4 times as destination among dominant traffic.
	observeN(tbl, 996, 40000, 53)
	observeN(tbl, 4, 31337, 23)

	rare := tbl.Rare(5)

	var dstRare, srcRare []model.PortStat
	for _, p := range rare {
		if p.Role == model.RoleDst {
			dstRare = append(dstRare, p)
		} else {
			srcRare = append(srcRare, p)
		}
	}

	if len(dstRare) != 1 || dstRare[0].Port != 23 || dstRare[0].Count != 4 {
		t.Errorf("Expected destination port 23 with 4 hits in rare set, got %v", dstRare)
	}
	// The probe source port was also seen fewer than 5 times.
	if len(srcRare) != 1 || srcRare[0].Port != 31337 {
		t.Errorf("Expected source port 31337 in rare set, got %v", srcRare)
	}
	// Destination entries come before source entries.
	if rare[0].Role != model.RoleDst {
		t.Errorf("Expected destination rare ports first, got role %s", rare[0].Role)
	}
}

func TestRare_CutoffBoundary(t *testing.T) {
	tbl := New()
	observeN(tbl, 5, 1000, 8080)
	observeN(tbl, 4, 1000, 9090)

	rare := tbl.Rare(5)
	for _, p := range rare {
		if p.Role == model.RoleDst && p.Port == 8080 {
			t.Errorf("Port with exactly cutoff hits must not be rare")
		}
	}
	found := false
	for _, p := range rare {
		if p.Role == model.RoleDst && p.Port == 9090 {
			found = true
		}
	}
	if !found {
		t.Errorf("Port 9090 with 4 hits should be rare")
	}
}

func TestTop_Cutoff(t *testing.T) {
	tbl := New()
	observeN(tbl, 10, 1, 80)
	observeN(tbl, 8, 2, 443)
	observeN(tbl, 6, 3, 22)
	observeN(tbl, 4, 4, 21)

	top := tbl.Top(model.RoleDst, 2)
	if len(top) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(top))
	}
	if top[0].Port != 80 || top[1].Port != 443 {
		t.Errorf("Expected ports 80, 443, got %d, %d", top[0].Port, top[1].Port)
	}
}

func TestEmptyTable(t *testing.T) {
	tbl := New()
	if dom := tbl.Dominant(model.RoleDst, 0.01); dom != nil {
		t.Errorf("Expected nil dominant set for empty table, got %v", dom)
	}
	if rare := tbl.Rare(5); rare != nil {
		t.Errorf("Expected nil rare set for empty table, got %v", rare)
	}
}
