package protocol

import (
	"encoding/binary"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/scottsmith200544/Firewall-Analysis/internal/model"
)

// ParsePacket uses gopacket to decode a raw Ethernet frame and extract the
// source/destination address and port tuple. Packets that do not carry an
// IPv4 TCP or UDP segment fail with a ParseError, so callers can count
// them as skipped the same way malformed log rows are.
func ParsePacket(data []byte) (model.Record, error) {
	packet := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)

	var rec model.Record

	// Get IPv4 layer. IPv6 and non-IP traffic is out of scope here.
	l := packet.Layer(layers.LayerTypeIPv4)
	if l == nil {
		return rec, &model.ParseError{Reason: model.ReasonMalformed, Field: "network", Value: "not IPv4"}
	}
	ip := l.(*layers.IPv4)
	rec.SrcIP = binary.BigEndian.Uint32(ip.SrcIP.To4())
	rec.DstIP = binary.BigEndian.Uint32(ip.DstIP.To4())

	// Get TCP layer, falling back to UDP.
	if l := packet.Layer(layers.LayerTypeTCP); l != nil {
		tcp := l.(*layers.TCP)
		rec.SrcPort = uint16(tcp.SrcPort)
		rec.DstPort = uint16(tcp.DstPort)
	} else if l := packet.Layer(layers.LayerTypeUDP); l != nil {
		udp := l.(*layers.UDP)
		rec.SrcPort = uint16(udp.SrcPort)
		rec.DstPort = uint16(udp.DstPort)
	} else {
		return rec, &model.ParseError{Reason: model.ReasonMalformed, Field: "transport", Value: "not TCP or UDP"}
	}

	return rec, nil
}
