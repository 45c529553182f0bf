package logfmt

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/scottsmith200544/Firewall-Analysis/internal/model"
)

// Mode selects how raw rows are interpreted. It is detected once from the
// first row of a file and reused for the remainder; rows that do not match
// the detected mode are treated as malformed.
type Mode int

const (
	// ModeKV parses rows whose cells are key="value" pairs.
	ModeKV Mode = iota
	// ModeColumnar parses rows positionally, using the column indexes
	// recorded from the header row.
	ModeColumnar
)

// Recognized field names. Any other key or column is ignored.
const (
	colSrcIP = iota
	colDstIP
	colSrcPort
	colDstPort
	colCount
)

var colNames = [colCount]string{"srcip", "dstip", "srcport", "dstport"}

// IsKV reports whether a row uses the key="value" cell format.
func IsKV(row []string) bool {
	for _, cell := range row {
		if strings.Contains(cell, "=") {
			return true
		}
	}
	return false
}

// Parser converts raw CSV rows into normalized records. A parser is locked
// to one format mode for its whole lifetime.
type Parser struct {
	mode Mode
	cols [colCount]int
}

// NewKV returns a parser for key="value" rows. The first row of such a file
// is data, not a header, and must be fed to ParseRow like any other row.
func NewKV() *Parser {
	return &Parser{mode: ModeKV}
}

// NewColumnar returns a parser locked to the column layout of the given
// header row. Header names are matched case-insensitively; unrecognized
// columns are ignored. A header that lacks any of the four required columns
// cannot yield a single record, so it is rejected outright.
func NewColumnar(header []string) (*Parser, error) {
	p := &Parser{mode: ModeColumnar}
	for i := range p.cols {
		p.cols[i] = -1
	}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "srcip":
			p.cols[colSrcIP] = i
		case "dstip":
			p.cols[colDstIP] = i
		case "srcport":
			p.cols[colSrcPort] = i
		case "dstport":
			p.cols[colDstPort] = i
		}
	}
	for i, idx := range p.cols {
		if idx < 0 {
			return nil, fmt.Errorf("header is missing required column %q", colNames[i])
		}
	}
	return p, nil
}

// Mode returns the format mode the parser is locked to.
func (p *Parser) Mode() Mode {
	return p.mode
}

// ParseRow converts one raw row into a Record. On failure it returns a
// *model.ParseError describing the reason; the caller is expected to skip
// the row, count it, and continue.
func (p *Parser) ParseRow(row []string) (model.Record, error) {
	if p.mode == ModeKV {
		return p.parseKV(row)
	}
	return p.parseColumnar(row)
}

func (p *Parser) parseKV(row []string) (model.Record, error) {
	var vals [colCount]string
	var has [colCount]bool
	found := 0

	for _, cell := range row {
		eq := strings.IndexByte(cell, '=')
		if eq < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(cell[:eq]))
		val := strings.Trim(cell[eq+1:], `" `)
		for i, name := range colNames {
			if key == name {
				vals[i], has[i] = val, true
				found++
				break
			}
		}
	}

	var rec model.Record
	if found == 0 {
		// Not a single key="value" cell matched; the row does not follow
		// the detected format at all.
		return rec, &model.ParseError{Reason: model.ReasonMalformed, Value: strings.Join(row, ",")}
	}
	for i, ok := range has {
		if !ok {
			return rec, &model.ParseError{Reason: model.ReasonMissingField, Field: colNames[i]}
		}
	}
	return buildRecord(vals)
}

func (p *Parser) parseColumnar(row []string) (model.Record, error) {
	var rec model.Record
	var vals [colCount]string
	for i, idx := range p.cols {
		if idx >= len(row) {
			return rec, &model.ParseError{Reason: model.ReasonMissingField, Field: colNames[i]}
		}
		vals[i] = row[idx]
	}
	return buildRecord(vals)
}

func buildRecord(vals [colCount]string) (model.Record, error) {
	var rec model.Record
	srcIP, err := parseAddr(colNames[colSrcIP], vals[colSrcIP])
	if err != nil {
		return rec, err
	}
	dstIP, err := parseAddr(colNames[colDstIP], vals[colDstIP])
	if err != nil {
		return rec, err
	}
	srcPort, err := parsePort(colNames[colSrcPort], vals[colSrcPort])
	if err != nil {
		return rec, err
	}
	dstPort, err := parsePort(colNames[colDstPort], vals[colDstPort])
	if err != nil {
		return rec, err
	}
	rec.SrcIP, rec.DstIP, rec.SrcPort, rec.DstPort = srcIP, dstIP, srcPort, dstPort
	return rec, nil
}

// parseAddr converts a dotted-quad IPv4 string into a 32-bit address with
// the most significant octet first.
func parseAddr(field, s string) (uint32, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil || !addr.Is4() {
		return 0, &model.ParseError{Reason: model.ReasonMalformed, Field: field, Value: s}
	}
	b := addr.As4()
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

func parsePort(field, s string) (uint16, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, &model.ParseError{Reason: model.ReasonMalformed, Field: field, Value: s}
	}
	if n < 0 || n > 65535 {
		return 0, &model.ParseError{Reason: model.ReasonOutOfRange, Field: field, Value: s}
	}
	return uint16(n), nil
}
