package record

import (
	"testing"

	"BurstScope/internal/model"
)

func TestFlowKeyDeterministic(t *testing.T) {
	rec := model.PacketRecord{
		SrcAddr: "10.0.0.1", DstAddr: "10.0.0.2",
		SrcPort: 1234, DstPort: 80, HasPorts: true,
	}

	a := FlowKeyOf(&rec, false)
	b := FlowKeyOf(&rec, false)
	if a.String() != b.String() {
		t.Errorf("Identical records produced different keys: %q vs %q", a.String(), b.String())
	}
}

func TestFlowKeyDirectionNotNormalized(t *testing.T) {
	fwd := model.PacketRecord{
		SrcAddr: "10.0.0.1", DstAddr: "10.0.0.2",
		SrcPort: 1234, DstPort: 80, HasPorts: true,
	}
	rev := model.PacketRecord{
		SrcAddr: "10.0.0.2", DstAddr: "10.0.0.1",
		SrcPort: 80, DstPort: 1234, HasPorts: true,
	}

	if FlowKeyOf(&fwd, false).String() == FlowKeyOf(&rev, false).String() {
		t.Error("Opposite directions must be distinct flows")
	}
}

func TestFlowKeyIgnorePorts(t *testing.T) {
	a := model.PacketRecord{
		SrcAddr: "10.0.0.1", DstAddr: "10.0.0.2",
		SrcPort: 1234, DstPort: 80, HasPorts: true,
	}
	b := model.PacketRecord{
		SrcAddr: "10.0.0.1", DstAddr: "10.0.0.2",
		SrcPort: 9999, DstPort: 443, HasPorts: true,
	}

	if FlowKeyOf(&a, true).String() != FlowKeyOf(&b, true).String() {
		t.Error("With ignored ports, same addresses must map to one flow")
	}
	if FlowKeyOf(&a, false).String() == FlowKeyOf(&b, false).String() {
		t.Error("With ports, different port pairs must map to different flows")
	}

	portless := model.PacketRecord{SrcAddr: "10.0.0.1", DstAddr: "10.0.0.2"}
	if FlowKeyOf(&portless, false).WithPorts {
		t.Error("Absent ports must not be part of the key")
	}
}
