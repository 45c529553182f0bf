package model

import (
	"fmt"
	"strconv"
	"time"
)

// Role identifies which side of a connection an address or port was observed on.
type Role string

const (
	RoleSrc Role = "src"
	RoleDst Role = "dst"
)

// Record is a single normalized firewall log row. Addresses are IPv4, packed
// most-significant octet first. Records are produced by a parser and consumed
// immediately by the analysis engine; they are never retained in bulk.
type Record struct {
	SrcIP   uint32
	DstIP   uint32
	SrcPort uint16
	DstPort uint16
}

// Batch is a group of records shipped from a probe to an engine in one
// message. Skipped carries the number of malformed rows dropped while the
// batch was being read.
type Batch struct {
	Records []Record
	Skipped uint64
}

// Prefix is one accepted covering network prefix for a single address family.
// Addr holds the network address with the host bits zeroed.
type Prefix struct {
	Addr  uint32  `json:"-"`
	Len   int     `json:"prefix_len"`
	CIDR  string  `json:"cidr"`
	Hits  uint64  `json:"hits"`
	Share float64 `json:"share"`
}

// String formats the prefix in CIDR notation.
func (p Prefix) String() string {
	return fmt.Sprintf("%d.%d.%d.%d/%d",
		byte(p.Addr>>24), byte(p.Addr>>16), byte(p.Addr>>8), byte(p.Addr), p.Len)
}

// PortStat is the exact observation count for one (role, port) pair.
type PortStat struct {
	Port  uint16  `json:"port"`
	Role  Role    `json:"role"`
	Count uint64  `json:"count"`
	Share float64 `json:"share"`
}

// AddrStat is the observation count for one (role, address) pair. Used for
// the top-talker tables in the report.
type AddrStat struct {
	Addr  uint32 `json:"-"`
	IP    string `json:"ip"`
	Role  Role   `json:"role"`
	Count uint64 `json:"count"`
}

// FormatAddr renders an IPv4 address packed most-significant octet first.
func FormatAddr(addr uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d",
		byte(addr>>24), byte(addr>>16), byte(addr>>8), byte(addr))
}

// CandidateRule is one suggested firewall rule. Port is the destination port
// restriction; -1 means the rule carries no port restriction.
type CandidateRule struct {
	Rank      int     `json:"rank"`
	SrcPrefix Prefix  `json:"src_prefix"`
	DstPrefix Prefix  `json:"dst_prefix"`
	Port      int     `json:"port"`
	Coverage  float64 `json:"coverage"`
	Hits      uint64  `json:"hits"`
}

// PortString renders the port restriction, "any" when the rule has none.
func (r CandidateRule) PortString() string {
	if r.Port < 0 {
		return "any"
	}
	return strconv.Itoa(r.Port)
}

// Report is the immutable result of one analysis run.
type Report struct {
	GeneratedAt     time.Time       `json:"generated_at"`
	Rules           []CandidateRule `json:"rules"`
	SrcPrefixes     []Prefix        `json:"src_prefixes"`
	DstPrefixes     []Prefix        `json:"dst_prefixes"`
	DominantPorts   []PortStat      `json:"dominant_ports"`
	RarePorts       []PortStat      `json:"rare_ports"`
	TopSources      []AddrStat      `json:"top_sources"`
	TopDestinations []AddrStat      `json:"top_destinations"`
	TopSrcPorts     []PortStat      `json:"top_src_ports"`
	TopDstPorts     []PortStat      `json:"top_dst_ports"`
	Records         uint64          `json:"records"`
	Skipped         uint64          `json:"skipped"`
}
