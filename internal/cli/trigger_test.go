package cli

import (
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"classroom-quiz-service/internal/notify"
)

func TestTriggerSendsControlDatagrams(t *testing.T) {
	sink, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer sink.Close()
	target := sink.LocalAddr().String()

	cases := []struct {
		args []string
		want notify.Command
	}{
		{[]string{"start", "lee"}, notify.StartTimer{Student: "lee"}},
		{[]string{"stop", "lee"}, notify.StopTimer{Student: "lee"}},
		{[]string{"event", "exam", "starts", "now"}, notify.Event{Scope: notify.EventGeneral, Text: "exam starts now"}},
		{[]string{"score", "ada", "7", "10"}, notify.StudentScored("ada", 7, 10)},
	}
	for _, tc := range cases {
		if err := runTrigger(t, append(tc.args, "--target", target)...); err != nil {
			t.Fatalf("%v: %v", tc.args, err)
		}
		payload := readDatagram(t, sink)
		if string(payload) != string(tc.want.Encode()) {
			t.Fatalf("%v: expected %q, got %q", tc.args, tc.want.Encode(), payload)
		}
		cmd, err := notify.ParseCommand(payload)
		if err != nil {
			t.Fatalf("%v: engine cannot parse %q: %v", tc.args, payload, err)
		}
		if string(cmd.Encode()) != string(payload) {
			t.Fatalf("%v: round trip changed %q into %q", tc.args, payload, cmd.Encode())
		}
	}
}

func TestTriggerRejectsBadScore(t *testing.T) {
	sink, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer sink.Close()

	if err := runTrigger(t, "score", "ada", "seven", "10", "--target", sink.LocalAddr().String()); err == nil {
		t.Fatalf("expected an error for a non-numeric score")
	}
	_ = sink.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if n, _, err := sink.ReadFromUDP(make([]byte, 256)); err == nil {
		t.Fatalf("nothing should be sent, got %d bytes", n)
	}
}

func runTrigger(t *testing.T, args ...string) error {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "absent.yaml")
	cmd := NewTriggerCmd(&configPath)
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.Execute()
}

func readDatagram(t *testing.T, conn *net.UDPConn) []byte {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 2048)
	n, _, err := conn.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("read datagram: %v", err)
	}
	return buf[:n]
}
