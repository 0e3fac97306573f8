package routeros

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/mikronet-dev/hotspot-backend/internal/models"
)

// startSilentRouter speaks just enough of the management protocol to accept a
// login, then swallows everything else without replying. Mimics a router that
// authenticates fine but hangs on commands.
func startSilentRouter(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() {
		ln.Close()
	})

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		readSentence(conn)
		writeSentence(conn, "!done")

		// The add command arrives here and is never answered.
		io.Copy(io.Discard, conn)
	}()

	return ln.Addr().String()
}

// readSentence consumes length-prefixed words up to the empty terminator.
// Word lengths in a login exchange always fit a single byte.
func readSentence(conn net.Conn) {
	lenByte := make([]byte, 1)
	for {
		if _, err := io.ReadFull(conn, lenByte); err != nil {
			return
		}
		n := int(lenByte[0])
		if n == 0 {
			return
		}
		word := make([]byte, n)
		if _, err := io.ReadFull(conn, word); err != nil {
			return
		}
	}
}

func writeSentence(conn net.Conn, words ...string) {
	var out []byte
	for _, w := range words {
		out = append(out, byte(len(w)))
		out = append(out, w...)
	}
	out = append(out, 0)
	conn.Write(out)
}

func TestCreateHotspotUserBoundsCommandPhase(t *testing.T) {
	addr := startSilentRouter(t)

	p := NewProvisioner(addr, "admin", "secret")
	p.commandTimeout = 200 * time.Millisecond

	plan := models.Plan{ID: "daily", ProfileName: "24-hour-profile", LimitUptime: "24h"}

	start := time.Now()
	err := p.CreateHotspotUser(context.Background(), "NET-ABCD2345", plan)
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected an error from an unresponsive router")
	}
	if !errors.Is(err, ErrRouterUnreachable) {
		t.Fatalf("expected ErrRouterUnreachable, got %v", err)
	}
	if elapsed > 2*time.Second {
		t.Fatalf("call was not bounded by the command timeout: took %s", elapsed)
	}
}

func TestCreateHotspotUserHonorsCallerDeadline(t *testing.T) {
	addr := startSilentRouter(t)

	p := NewProvisioner(addr, "admin", "secret")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	plan := models.Plan{ID: "daily", ProfileName: "24-hour-profile", LimitUptime: "24h"}

	start := time.Now()
	err := p.CreateHotspotUser(ctx, "NET-ABCD2345", plan)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrRouterUnreachable) {
		t.Fatalf("expected ErrRouterUnreachable, got %v", err)
	}
	if elapsed > 2*time.Second {
		t.Fatalf("call outlived the caller's deadline: took %s", elapsed)
	}
}
