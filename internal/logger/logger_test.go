package logger

import (
	"bytes"
	"os"
	"testing"
)

func TestInfo_Success_Warn_Error_NoPanic(t *testing.T) {
	// Redirect stdout so we don't spam the test output
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	defer func() { os.Stdout = old }()

	Info("TAG", "message")
	Success("TAG", "message")
	Warn("TAG", "message")
	Error("TAG", "message")

	w.Close()
	var buf bytes.Buffer
	buf.ReadFrom(r)
	// Just ensure we didn't panic; output is environment-dependent (colors, etc.)
}

func TestBanner_NoPanic(t *testing.T) {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	defer func() { os.Stdout = old }()

	Banner("v1.0.0")
	Banner("")

	w.Close()
	var buf bytes.Buffer
	buf.ReadFrom(r)
}

func TestSectionAndStats_NoPanic(t *testing.T) {
	old := os.Stdout
	_, w, _ := os.Pipe()
	os.Stdout = w
	defer func() { os.Stdout = old }()
	Section("Test")
	Stats("key", 42)
	w.Close()
}

func TestStats_FormatsIntegersWithCommas(t *testing.T) {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	defer func() { os.Stdout = old }()

	Stats("bank", int64(10_000_000))
	w.Close()
	var buf bytes.Buffer
	buf.ReadFrom(r)
	if !bytes.Contains(buf.Bytes(), []byte("10,000,000")) {
		t.Fatalf("Stats output = %q, want grouped digits", buf.String())
	}
}

func TestDebug_SilentUnlessEnabled(t *testing.T) {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	defer func() { os.Stdout = old }()

	SetDebug(false)
	Debug("TAG", "hidden")
	SetDebug(true)
	Debug("TAG", "shown")
	SetDebug(false)
	w.Close()
	var buf bytes.Buffer
	buf.ReadFrom(r)
	if bytes.Contains(buf.Bytes(), []byte("hidden")) {
		t.Fatalf("debug line printed while disabled: %q", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("shown")) {
		t.Fatalf("debug line missing while enabled: %q", buf.String())
	}
}
