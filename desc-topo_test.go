package mnet

import (
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTopoDescRoundTrip(t *testing.T) {
	topo := buildTestTopo(t, "linear")
	td := topo.Desc()

	if len(td.Hosts) != 2 || len(td.Switches) != 2 || len(td.Links) != 3 {
		t.Fatalf("desc shape %d hosts %d switches %d links", len(td.Hosts), len(td.Switches), len(td.Links))
	}

	rebuilt := CreateTopology(TopoConfig{Name: "rebuilt", TopoType: "desc"})
	rebuilt.SetDesc(td)
	if err := rebuilt.Build(); err != nil {
		t.Fatalf("Build from desc: %v", err)
	}

	if diff := cmp.Diff(topo.Hosts(), rebuilt.Hosts()); diff != "" {
		t.Errorf("hosts mismatch (-orig +rebuilt):\n%s", diff)
	}
	if diff := cmp.Diff(topo.Switches(), rebuilt.Switches()); diff != "" {
		t.Errorf("switches mismatch (-orig +rebuilt):\n%s", diff)
	}
	if diff := cmp.Diff(topo.Links(), rebuilt.Links()); diff != "" {
		t.Errorf("links mismatch (-orig +rebuilt):\n%s", diff)
	}

	// interface bindings survive the round trip
	orig := topo.Host("h1").DevIntrfcs()[0]
	back := rebuilt.Host("h1").DevIntrfcs()[0]
	if orig.Name != back.Name || orig.Addr != back.Addr {
		t.Errorf("h1 interface (%s, %s) became (%s, %s)", orig.Name, orig.Addr, back.Name, back.Addr)
	}

	// and the wiring is restored symmetric
	trunkSrc := rebuilt.Switch("s1").DevIntrfcs()[1]
	trunkDst := rebuilt.Switch("s2").DevIntrfcs()[1]
	if trunkSrc.Peer != trunkDst || trunkDst.Peer != trunkSrc {
		t.Error("rebuilt trunk wiring not symmetric")
	}
}

func TestTopoDescFileRoundTrip(t *testing.T) {
	topo := buildTestTopo(t, "single")
	td := topo.Desc()

	tests := []struct {
		filename string
		useYAML  bool
	}{
		{"topo.yaml", true},
		{"topo.json", false},
	}
	for _, test := range tests {
		pathName := filepath.Join(t.TempDir(), test.filename)
		if err := td.WriteToFile(pathName); err != nil {
			t.Fatalf("WriteToFile(%s): %v", test.filename, err)
		}
		back, err := ReadTopoDesc(pathName, test.useYAML, []byte{})
		if err != nil {
			t.Fatalf("ReadTopoDesc(%s): %v", test.filename, err)
		}
		if diff := cmp.Diff(td, back); diff != "" {
			t.Errorf("%s round trip mismatch (-wrote +read):\n%s", test.filename, diff)
		}
	}
}

func TestTopoDescDict(t *testing.T) {
	single := buildTestTopo(t, "single").Desc()
	single.Name = "single"
	linear := buildTestTopo(t, "linear").Desc()
	linear.Name = "linear"

	tdd := CreateTopoDescDict("shapes")
	tdd.AddTopoDesc(single)
	tdd.AddTopoDesc(linear)

	pathName := filepath.Join(t.TempDir(), "shapes.yaml")
	if err := tdd.WriteToFile(pathName); err != nil {
		t.Fatalf("WriteToFile: %v", err)
	}
	back, err := ReadTopoDescDict(pathName, true, []byte{})
	if err != nil {
		t.Fatalf("ReadTopoDescDict: %v", err)
	}

	recovered, present := back.RecoverTopoDesc("linear")
	if !present {
		t.Fatal("linear description missing after round trip")
	}
	if diff := cmp.Diff(linear, recovered); diff != "" {
		t.Errorf("linear desc mismatch (-wrote +read):\n%s", diff)
	}
	if _, present := back.RecoverTopoDesc("absent"); present {
		t.Error("recovered a description that was never added")
	}
}

func TestTopoDescSparseIntrfcs(t *testing.T) {
	topo := buildTestTopo(t, "minimal")
	if err := topo.Host("h1").DevAddIntrfc(5, netip.Addr{}); err != nil {
		t.Fatalf("DevAddIntrfc: %v", err)
	}
	sparseAddr := topo.Host("h1").DevIntrfcs()[5].Addr

	td := topo.Desc()
	var h1 *DevDesc
	for idx := range td.Hosts {
		if td.Hosts[idx].Name == "h1" {
			h1 = &td.Hosts[idx]
		}
	}
	if h1 == nil {
		t.Fatal("h1 missing from description")
	}
	if len(h1.Intrfcs) != 2 {
		t.Fatalf("desc carries %d interfaces, want 2", len(h1.Intrfcs))
	}
	if diff := cmp.Diff([]int{0, 5}, []int{h1.Intrfcs[0].Index, h1.Intrfcs[1].Index}); diff != "" {
		t.Fatalf("interface indices mismatch (-want +got):\n%s", diff)
	}

	rebuilt := CreateTopology(TopoConfig{Name: "rebuilt", TopoType: "desc"})
	rebuilt.SetDesc(td)
	if err := rebuilt.Build(); err != nil {
		t.Fatalf("Build from desc: %v", err)
	}
	intrfcs := rebuilt.Host("h1").DevIntrfcs()
	if len(intrfcs) != 2 {
		t.Fatalf("rebuilt host has %d interfaces, want 2", len(intrfcs))
	}
	if _, present := intrfcs[1]; present {
		t.Error("rebuild fabricated an interface at index 1")
	}
	back, present := intrfcs[5]
	if !present {
		t.Fatal("rebuilt host lost the interface at index 5")
	}
	if back.Addr != sparseAddr {
		t.Errorf("index 5 address %s, want %s", back.Addr, sparseAddr)
	}
}

func TestWriteToFileUnknownExtension(t *testing.T) {
	td := buildTestTopo(t, "minimal").Desc()
	pathName := filepath.Join(t.TempDir(), "topo.txt")
	if err := td.WriteToFile(pathName); err == nil {
		t.Error("WriteToFile accepted an unrecognized extension")
	}
	tdd := CreateTopoDescDict("shapes")
	tdd.AddTopoDesc(td)
	if err := tdd.WriteToFile(pathName); err == nil {
		t.Error("dict WriteToFile accepted an unrecognized extension")
	}
	if _, err := os.Stat(pathName); !os.IsNotExist(err) {
		t.Error("rejected write still created the file")
	}
}

func TestReadTopoDescBadPath(t *testing.T) {
	dir := t.TempDir()

	// a directory is not a description file
	if _, err := ReadTopoDesc(dir, true, []byte{}); err == nil {
		t.Error("ReadTopoDesc accepted a directory")
	}
	if _, err := ReadTopoDescDict(dir, true, []byte{}); err == nil {
		t.Error("ReadTopoDescDict accepted a directory")
	}

	// a path descending through a regular file fails stat with an
	// error other than not-exist
	plain := filepath.Join(dir, "plain")
	if err := os.WriteFile(plain, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := ReadTopoDesc(filepath.Join(plain, "topo.yaml"), true, []byte{}); err == nil {
		t.Error("ReadTopoDesc accepted a path through a regular file")
	}
	if _, err := ReadTopoDescDict(filepath.Join(plain, "topo.yaml"), true, []byte{}); err == nil {
		t.Error("ReadTopoDescDict accepted a path through a regular file")
	}
}

func TestBuildDescTopoWithoutDesc(t *testing.T) {
	topo := CreateTopology(TopoConfig{TopoType: "desc"})
	if err := topo.Build(); err == nil {
		t.Error("Build of desc topology with no description succeeded")
	}
}
