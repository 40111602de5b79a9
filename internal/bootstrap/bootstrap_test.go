package bootstrap

import (
	"testing"

	"github.com/rumormesh/rumornode/internal/domain"
	"github.com/rumormesh/rumornode/internal/events"
)

func TestStartNoBootstrapWhenEmpty(t *testing.T) {
	identity := domain.NodeIdentity{NodeID: "n1", SelfAddr: "127.0.0.1:5000"}
	out := Start(identity, "", 30, 0, 1000, func() string { return "id" }, events.Nop{})
	if out != nil {
		t.Fatalf("want nil for empty bootstrap_addr, got %v", out)
	}
}

func TestStartNoBootstrapWhenSelf(t *testing.T) {
	identity := domain.NodeIdentity{NodeID: "n1", SelfAddr: "127.0.0.1:5000"}
	out := Start(identity, "127.0.0.1:5000", 30, 0, 1000, func() string { return "id" }, events.Nop{})
	if out != nil {
		t.Fatalf("want nil when bootstrap_addr equals self, got %v", out)
	}
}

func TestStartSendsHelloThenGetPeers(t *testing.T) {
	identity := domain.NodeIdentity{NodeID: "n1", SelfAddr: "127.0.0.1:5001"}
	out := Start(identity, "127.0.0.1:5000", 30, 0, 1000, func() string { return "id" }, events.Nop{})
	if len(out) != 2 {
		t.Fatalf("want HELLO + GET_PEERS, got %d", len(out))
	}
	if out[0].Env.MsgType != domain.MsgHello || out[1].Env.MsgType != domain.MsgGetPeers {
		t.Fatalf("want [HELLO, GET_PEERS], got [%s, %s]", out[0].Env.MsgType, out[1].Env.MsgType)
	}
	for _, ob := range out {
		if ob.Addr != "127.0.0.1:5000" {
			t.Fatalf("both sends should target bootstrap_addr, got %s", ob.Addr)
		}
	}
}

func TestStartAttachesPoWWhenConfigured(t *testing.T) {
	identity := domain.NodeIdentity{NodeID: "n1", SelfAddr: "127.0.0.1:5001"}
	out := Start(identity, "127.0.0.1:5000", 30, 4, 1000, func() string { return "id" }, events.Nop{})
	pow, ok := out[0].Env.Payload["pow"]
	if !ok {
		t.Fatal("want pow attached to HELLO when k_pow > 0")
	}
	if pow == nil {
		t.Fatal("pow value should not be nil")
	}
}
