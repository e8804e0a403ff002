package mnet

import (
	"context"
	"errors"
	"testing"
)

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		device   string
		port     int
		wantErr  bool
	}{
		{"h1.0", "h1", 0, false},
		{"s2.13", "s2", 13, false},
		{"my.host.2", "my.host", 2, false},
		{"h1", "", 0, true},
		{"h1.", "", 0, true},
		{".0", "", 0, true},
		{"h1.-1", "", 0, true},
		{"h1.eth0", "", 0, true},
		{"", "", 0, true},
	}
	for _, test := range tests {
		device, port, err := parseEndpoint(test.endpoint)
		if test.wantErr {
			if err == nil {
				t.Errorf("parseEndpoint(%q) succeeded, want error", test.endpoint)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseEndpoint(%q): %v", test.endpoint, err)
			continue
		}
		if device != test.device || port != test.port {
			t.Errorf("parseEndpoint(%q) = (%s, %d), want (%s, %d)",
				test.endpoint, device, port, test.device, test.port)
		}
	}
}

// a recordingPorts is a PortProvider test double
type recordingPorts struct {
	calls  []string
	failOn string
}

func (rp *recordingPorts) CreatePair(name1, name2 string) error {
	rp.calls = append(rp.calls, "pair "+name1+"/"+name2)
	if rp.failOn == "pair" {
		return errors.New("pair failed")
	}
	return nil
}

func (rp *recordingPorts) SetUp(name string) error {
	rp.calls = append(rp.calls, "up "+name)
	if rp.failOn == "up" {
		return errors.New("up failed")
	}
	return nil
}

func (rp *recordingPorts) Remove(name string) error {
	rp.calls = append(rp.calls, "rm "+name)
	if rp.failOn == "rm" {
		return errors.New("rm failed")
	}
	return nil
}

func (rp *recordingPorts) MoveToNetns(name string, pid int) error {
	rp.calls = append(rp.calls, "move "+name)
	return nil
}

func TestLinkLifecycleWithPorts(t *testing.T) {
	ctx := context.Background()
	a := createDefaultIntrfc("h1", 0)
	b := createDefaultIntrfc("s1", 0)
	if err := connectIntrfcs(a, b); err != nil {
		t.Fatalf("connectIntrfcs: %v", err)
	}

	rp := new(recordingPorts)
	link, err := createDefaultLink("h1 to s1", LinkConfig{
		SrcDev: "h1", SrcPort: 0, DstDev: "s1", DstPort: 0,
		SrcIntrfc: a, DstIntrfc: b, Ports: rp,
	})
	if err != nil {
		t.Fatalf("createDefaultLink: %v", err)
	}

	if err := link.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if link.DevState() != DevRunning {
		t.Fatalf("state after start %s", DevStateToStr(link.DevState()))
	}
	if err := link.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	want := []string{"pair h1-eth0/s1-eth0", "up h1-eth0", "up s1-eth0", "rm h1-eth0"}
	if len(rp.calls) != len(want) {
		t.Fatalf("port calls %v, want %v", rp.calls, want)
	}
	for idx := range want {
		if rp.calls[idx] != want[idx] {
			t.Fatalf("port calls %v, want %v", rp.calls, want)
		}
	}
}

func TestLinkStartFailure(t *testing.T) {
	ctx := context.Background()
	a := createDefaultIntrfc("h1", 0)
	b := createDefaultIntrfc("s1", 0)
	if err := connectIntrfcs(a, b); err != nil {
		t.Fatalf("connectIntrfcs: %v", err)
	}
	rp := &recordingPorts{failOn: "pair"}
	link, err := createDefaultLink("h1 to s1", LinkConfig{
		SrcIntrfc: a, DstIntrfc: b, Ports: rp,
	})
	if err != nil {
		t.Fatalf("createDefaultLink: %v", err)
	}
	if err := link.Start(ctx); !errors.Is(err, ErrExecution) {
		t.Fatalf("Start = %v, want ErrExecution", err)
	}
	if link.DevState() == DevRunning {
		t.Error("failed start left link Running")
	}
}

func TestLinkStopIdempotent(t *testing.T) {
	ctx := context.Background()
	a := createDefaultIntrfc("h1", 0)
	b := createDefaultIntrfc("s1", 0)
	if err := connectIntrfcs(a, b); err != nil {
		t.Fatalf("connectIntrfcs: %v", err)
	}
	rp := new(recordingPorts)
	link, err := createDefaultLink("h1 to s1", LinkConfig{
		SrcIntrfc: a, DstIntrfc: b, Ports: rp,
	})
	if err != nil {
		t.Fatalf("createDefaultLink: %v", err)
	}

	// never started: stop is a no-op that touches no ports
	if err := link.Stop(ctx); err != nil {
		t.Fatalf("stop before start: %v", err)
	}
	if len(rp.calls) != 0 {
		t.Fatalf("stop before start reached the provider: %v", rp.calls)
	}

	if err := link.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := link.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	calls := len(rp.calls)
	if err := link.Stop(ctx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if len(rp.calls) != calls {
		t.Errorf("second stop reached the provider: %v", rp.calls)
	}
}
