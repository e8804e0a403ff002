package mnet

import (
	"errors"
	"testing"
)

func TestConnectIntrfcsSymmetric(t *testing.T) {
	a := createDefaultIntrfc("h1", 0)
	b := createDefaultIntrfc("s1", 0)

	if err := connectIntrfcs(a, b); err != nil {
		t.Fatalf("connectIntrfcs: %v", err)
	}
	if a.Peer != b || b.Peer != a {
		t.Fatalf("wiring not symmetric: a.Peer=%v b.Peer=%v", a.Peer, b.Peer)
	}
	if !a.Wired() || !b.Wired() {
		t.Error("Wired() false on connected interfaces")
	}

	if err := disconnectIntrfcs(a, b); err != nil {
		t.Fatalf("disconnectIntrfcs: %v", err)
	}
	if a.Peer != nil || b.Peer != nil {
		t.Error("peers not cleared after disconnect")
	}
}

func TestConnectIntrfcsRejectsBoundFarEnd(t *testing.T) {
	a := createDefaultIntrfc("h1", 0)
	b := createDefaultIntrfc("s1", 0)
	c := createDefaultIntrfc("h2", 0)

	if err := connectIntrfcs(a, b); err != nil {
		t.Fatalf("connectIntrfcs: %v", err)
	}

	// b is taken: wiring c to b must fail and leave c untouched
	if err := connectIntrfcs(c, b); !errors.Is(err, ErrAlreadyWired) {
		t.Fatalf("connect to bound far end = %v, want ErrAlreadyWired", err)
	}
	if c.Peer != nil {
		t.Error("failed connect left near end half-wired")
	}
	if b.Peer != a {
		t.Error("failed connect disturbed the existing wiring")
	}
}

func TestDisconnectIntrfcsNotWired(t *testing.T) {
	a := createDefaultIntrfc("h1", 0)
	b := createDefaultIntrfc("s1", 0)
	if err := disconnectIntrfcs(a, b); !errors.Is(err, ErrNotWired) {
		t.Errorf("disconnect of unwired pair = %v, want ErrNotWired", err)
	}
}

func TestDefaultIntrfcNaming(t *testing.T) {
	tests := []struct {
		device string
		index  int
		want   string
	}{
		{"h1", 0, "h1-eth0"},
		{"s2", 3, "s2-eth3"},
	}
	for _, test := range tests {
		intrfc := createDefaultIntrfc(test.device, test.index)
		if intrfc.Name != test.want {
			t.Errorf("name of (%s, %d) = %s, want %s", test.device, test.index, intrfc.Name, test.want)
		}
	}
}

func TestGenMACWellFormed(t *testing.T) {
	dev, err := createDefaultDev("h1", HostKind, DevConfig{SetMAC: true, NumIntrfcs: 4})
	if err != nil {
		t.Fatalf("createDefaultDev: %v", err)
	}
	for idx, intrfc := range dev.DevIntrfcs() {
		mac := intrfc.MAC
		if len(mac) != 6 {
			t.Fatalf("interface %d MAC has %d bytes", idx, len(mac))
		}
		// locally administered unicast
		if mac[0]&0x02 == 0 || mac[0]&0x01 != 0 {
			t.Errorf("interface %d MAC %s is not locally-administered unicast", idx, mac)
		}
	}
}
