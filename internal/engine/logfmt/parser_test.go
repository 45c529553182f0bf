package logfmt

import (
	"errors"
	"testing"

	"github.com/scottsmith200544/Firewall-Analysis/internal/model"
)

func TestIsKV(t *testing.T) {
	kvRow := []string{`date="2024-05-01"`, `srcip="10.0.0.1"`}
	if !IsKV(kvRow) {
		t.Errorf("Expected key-value row to be detected as KV")
	}

	columnarRow := []string{"srcip", "dstip", "srcport", "dstport"}
	if IsKV(columnarRow) {
		t.Errorf("Expected columnar header to not be detected as KV")
	}
}

func TestParseRow_KV(t *testing.T) {
	p := NewKV()

	row := []string{
		`date="2024-05-01 10:00:00"`,
		`srcip="10.0.0.1"`,
		`dstip="8.8.8.8"`,
		`srcport="12345"`,
		`dstport="53"`,
		`action="accept"`,
	}
	rec, err := p.ParseRow(row)
	if err != nil {
		t.Fatalf("ParseRow failed: %v", err)
	}

	if rec.SrcIP != 0x0A000001 {
		t.Errorf("Expected SrcIP 0x0A000001, got 0x%08X", rec.SrcIP)
	}
	if rec.DstIP != 0x08080808 {
		t.Errorf("Expected DstIP 0x08080808, got 0x%08X", rec.DstIP)
	}
	if rec.SrcPort != 12345 {
		t.Errorf("Expected SrcPort 12345, got %d", rec.SrcPort)
	}
	if rec.DstPort != 53 {
		t.Errorf("Expected DstPort 53, got %d", rec.DstPort)
	}
}

func TestParseRow_KVUnquotedValues(t *testing.T) {
	// Some exports write key=value without quotes; the parser must accept both.
	p := NewKV()

	row := []string{"srcip=192.168.1.10", "dstip=1.1.1.1", "srcport=40000", "dstport=443"}
	rec, err := p.ParseRow(row)
	if err != nil {
		t.Fatalf("ParseRow failed: %v", err)
	}
	if rec.SrcIP != 0xC0A8010A {
		t.Errorf("Expected SrcIP 0xC0A8010A, got 0x%08X", rec.SrcIP)
	}
}

func TestParseRow_Columnar(t *testing.T) {
	// 1. Columns may appear in any order and headers are matched case-insensitively.
	header := []string{"Timestamp", "DSTPORT", "srcip", "Action", "dstip", "SrcPort"}
	p, err := NewColumnar(header)
	if err != nil {
		t.Fatalf("NewColumnar failed: %v", err)
	}

	// 2. Unrecognized columns are carried in the row but ignored.
	row := []string{"2024-05-01 10:00:00", "443", "172.16.0.9", "deny", "93.184.216.34", "51000"}
	rec, err := p.ParseRow(row)
	if err != nil {
		t.Fatalf("ParseRow failed: %v", err)
	}

	if rec.SrcIP != 0xAC100009 {
		t.Errorf("Expected SrcIP 0xAC100009, got 0x%08X", rec.SrcIP)
	}
	if rec.DstIP != 0x5DB8D822 {
		t.Errorf("Expected DstIP 0x5DB8D822, got 0x%08X", rec.DstIP)
	}
	if rec.SrcPort != 51000 || rec.DstPort != 443 {
		t.Errorf("Expected ports 51000/443, got %d/%d", rec.SrcPort, rec.DstPort)
	}
}

func TestNewColumnar_MissingRequiredColumn(t *testing.T) {
	_, err := NewColumnar([]string{"srcip", "dstip", "srcport"})
	if err == nil {
		t.Fatalf("Expected error for header without dstport, got nil")
	}
}

func TestParseRow_ErrorReasons(t *testing.T) {
	kv := NewKV()
	columnar, err := NewColumnar([]string{"srcip", "dstip", "srcport", "dstport"})
	if err != nil {
		t.Fatalf("NewColumnar failed: %v", err)
	}

	cases := []struct {
		name   string
		parser *Parser
		row    []string
		reason string
	}{
		{
			name:   "non-numeric port",
			parser: columnar,
			row:    []string{"10.0.0.1", "8.8.8.8", "1234", "http"},
			reason: model.ReasonMalformed,
		},
		{
			name:   "port out of range",
			parser: columnar,
			row:    []string{"10.0.0.1", "8.8.8.8", "1234", "70000"},
			reason: model.ReasonOutOfRange,
		},
		{
			name:   "negative port",
			parser: columnar,
			row:    []string{"10.0.0.1", "8.8.8.8", "-1", "80"},
			reason: model.ReasonOutOfRange,
		},
		{
			name:   "bad address",
			parser: columnar,
			row:    []string{"10.0.0.256", "8.8.8.8", "1234", "80"},
			reason: model.ReasonMalformed,
		},
		{
			name:   "ipv6 address rejected",
			parser: columnar,
			row:    []string{"2001:db8::1", "8.8.8.8", "1234", "80"},
			reason: model.ReasonMalformed,
		},
		{
			name:   "short columnar row",
			parser: columnar,
			row:    []string{"10.0.0.1", "8.8.8.8"},
			reason: model.ReasonMissingField,
		},
		{
			name:   "kv row without srcport",
			parser: kv,
			row:    []string{`srcip="10.0.0.1"`, `dstip="8.8.8.8"`, `dstport="53"`},
			reason: model.ReasonMissingField,
		},
		{
			name:   "kv row with no pairs at all",
			parser: kv,
			row:    []string{"garbage", "more garbage"},
			reason: model.ReasonMalformed,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.parser.ParseRow(tc.row)
			if err == nil {
				t.Fatalf("Expected error, got nil")
			}
			var perr *model.ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("Expected *model.ParseError, got %T", err)
			}
			if perr.Reason != tc.reason {
				t.Errorf("Expected reason %q, got %q", tc.reason, perr.Reason)
			}
		})
	}
}
