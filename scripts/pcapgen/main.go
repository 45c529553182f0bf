package main

import (
	"flag"
	"log"
	"math/rand"
	"net"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

func main() {
	outputFile := flag.String("o", "test.pcap", "Output pcap file path")
	packetCount := flag.Int("c", 1000, "Number of packets to generate")
	flag.Parse()

	f, err := os.Create(*outputFile)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()

	pcapWriter := pcapgo.NewWriter(f)
	if err := pcapWriter.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		log.Fatalf("Failed to write pcap header: %v", err)
	}

	log.Printf("Generating %d packets into %s...", *packetCount, *outputFile)

	for i := 0; i < *packetCount; i++ {
		if (i+1)%100000 == 0 {
			log.Printf("Generated %d packets...", i+1)
		}

		srcIP, dstIP, srcPort, dstPort, proto := nextFlow()

		ethLayer := &layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
			DstMAC:       net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xAA},
			EthernetType: layers.EthernetTypeIPv4,
		}
		ipLayer := &layers.IPv4{
			SrcIP:    srcIP,
			DstIP:    dstIP,
			Version:  4,
			TTL:      64,
			Protocol: proto,
		}

		payload := make([]byte, rand.Intn(1400)+50)
		rand.Read(payload)

		buf := gopacket.NewSerializeBuffer()
		opts := gopacket.SerializeOptions{
			ComputeChecksums: true,
			FixLengths:       true,
		}

		var serr error
		if proto == layers.IPProtocolTCP {
			tcpLayer := &layers.TCP{
				SrcPort: layers.TCPPort(srcPort),
				DstPort: layers.TCPPort(dstPort),
				Seq:     rand.Uint32(),
				Ack:     rand.Uint32(),
				SYN:     true,
				Window:  14600,
			}
			tcpLayer.SetNetworkLayerForChecksum(ipLayer)
			serr = gopacket.SerializeLayers(buf, opts, ethLayer, ipLayer, tcpLayer, gopacket.Payload(payload))
		} else {
			udpLayer := &layers.UDP{
				SrcPort: layers.UDPPort(srcPort),
				DstPort: layers.UDPPort(dstPort),
			}
			udpLayer.SetNetworkLayerForChecksum(ipLayer)
			serr = gopacket.SerializeLayers(buf, opts, ethLayer, ipLayer, udpLayer, gopacket.Payload(payload))
		}
		if serr != nil {
			log.Fatalf("Failed to serialize layers: %v", serr)
		}

		ci := gopacket.CaptureInfo{
			Timestamp:     time.Now(),
			CaptureLength: len(buf.Bytes()),
			Length:        len(buf.Bytes()),
		}
		if err := pcapWriter.WritePacket(ci, buf.Bytes()); err != nil {
			log.Fatalf("Failed to write packet: %v", err)
		}
	}

	log.Printf("Successfully generated %d packets into %s.", *packetCount, *outputFile)
}

// nextFlow draws one flow from a clustered mix so the resulting capture
// produces meaningful prefixes and port statistics when analyzed.
func nextFlow() (net.IP, net.IP, int, int, layers.IPProtocol) {
	ephemeral := rand.Intn(65535-1024) + 1024
	r := rand.Float64()
	switch {
	case r < 0.70:
		return clientIP(), net.IP{192, 168, 1, 10}, ephemeral, 443, layers.IPProtocolTCP
	case r < 0.85:
		return clientIP(), net.IP{192, 168, 1, 20}, ephemeral, 53, layers.IPProtocolUDP
	default:
		return randIP(), randIP(), ephemeral, rand.Intn(65536), layers.IPProtocolTCP
	}
}

func clientIP() net.IP {
	return net.IP{10, 0, byte(rand.Intn(8)), byte(rand.Intn(254) + 1)}
}

func randIP() net.IP {
	return net.IP{byte(rand.Intn(223) + 1), byte(rand.Intn(256)), byte(rand.Intn(256)), byte(rand.Intn(256))}
}
