package link

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"go.bug.st/serial"

	"robot-pipeline/internal/utils"
)

// SerialDialer 시리얼 포트(UART, RFCOMM tty)를 8N1로 열기
func SerialDialer(port string, baud int) Dialer {
	return func(ctx context.Context) (io.ReadWriteCloser, error) {
		mode := &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}
		p, err := serial.Open(port, mode)
		if err != nil {
			return nil, fmt.Errorf("open serial port %s: %w", port, err)
		}
		return p, nil
	}
}

// TCPListenDialer addr에서 대기하다 첫 번째 피어 하나를 수락
func TCPListenDialer(addr string) Dialer {
	return func(ctx context.Context) (io.ReadWriteCloser, error) {
		var lc net.ListenConfig
		ln, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("listen on %s: %w", addr, err)
		}
		defer ln.Close()

		stop := context.AfterFunc(ctx, func() {
			ln.Close()
		})
		defer stop()

		utils.Logger.Infof("Waiting for peer on %s", ln.Addr())

		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("accept on %s: %w", addr, err)
		}

		utils.Logger.Infof("Accepted peer %s on %s", conn.RemoteAddr(), addr)
		return conn, nil
	}
}

// TCPDialer addr로 직접 연결
func TCPDialer(addr string, timeout time.Duration) Dialer {
	return func(ctx context.Context) (io.ReadWriteCloser, error) {
		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", addr, err)
		}
		return conn, nil
	}
}
