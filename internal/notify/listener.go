package notify

import (
	"context"
	"errors"
	"log"
	"net"
)

const maxDatagram = 2048

// ServeDatagrams reads from conn until ctx is done, passing each datagram to
// handle. conn is closed on return.
func ServeDatagrams(ctx context.Context, conn net.PacketConn, handle func([]byte, *net.UDPAddr)) error {
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	defer conn.Close()

	buf := make([]byte, maxDatagram)
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Printf("notify: read on %s failed: %v", conn.LocalAddr(), err)
			continue
		}
		from, ok := addr.(*net.UDPAddr)
		if !ok {
			continue
		}
		payload := make([]byte, n)
		copy(payload, buf[:n])
		handle(payload, from)
	}
}
