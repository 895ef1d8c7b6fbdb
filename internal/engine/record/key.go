package record

import "BurstScope/internal/model"

// FlowKeyOf derives the flow identity for a packet. Ports are part of the
// key unless they are ignored or absent from the record. Deterministic:
// identical records always yield byte-identical keys because addresses are
// canonicalized at parse time.
func FlowKeyOf(rec *model.PacketRecord, ignorePorts bool) model.FlowKey {
	key := model.FlowKey{
		SrcAddr: rec.SrcAddr,
		DstAddr: rec.DstAddr,
	}
	if !ignorePorts && rec.HasPorts {
		key.SrcPort = rec.SrcPort
		key.DstPort = rec.DstPort
		key.WithPorts = true
	}
	return key
}
