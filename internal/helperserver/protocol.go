package helperserver

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/gitkit/parafs/internal/convert"
	"github.com/gitkit/parafs/internal/item"
	"github.com/gitkit/parafs/internal/wireproto"
)

// ServeWire drives one helper subprocess's stdin/stdout as a framed packet
// protocol: a handshake, then a loop of queue/write/get1/mget commands,
// until r returns io.EOF (the foreground closed our stdin to signal join).
// It runs the preload/writer threads via s.Run concurrently with the
// command loop, under one errgroup.
func ServeWire(ctx context.Context, s *Server, r *bufio.Reader, w io.Writer) error {
	hs, err := wireproto.ReadHandshake(r)
	if err != nil {
		return fmt.Errorf("helperserver: reading handshake: %w", err)
	}
	_ = hs // capability negotiation is informational only on the helper side
	if err := wireproto.WriteHandshake(w, wireproto.SupportedVersion, []wireproto.Capability{
		wireproto.CapQueue, wireproto.CapWrite, wireproto.CapGet1, wireproto.CapMget,
	}); err != nil {
		return fmt.Errorf("helperserver: writing handshake: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Run(ctx) })
	g.Go(func() error {
		defer s.Shutdown()
		return commandLoop(s, r, w)
	})
	return g.Wait()
}

func commandLoop(s *Server, r *bufio.Reader, w io.Writer) error {
	for {
		cmd, err := wireproto.ReadCommand(r)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("helperserver: reading command: %w", err)
		}

		switch cmd {
		case wireproto.CmdQueue:
			if err := handleQueue(s, r); err != nil {
				return err
			}
		case wireproto.CmdWrite:
			if err := handleWrite(s, r); err != nil {
				return err
			}
		case wireproto.CmdGet1:
			if err := handleGet1(s, r, w); err != nil {
				return err
			}
		case wireproto.CmdMget:
			if err := handleMget(s, r, w); err != nil {
				return err
			}
		default:
			return fmt.Errorf("helperserver: unrecognized command %q", cmd)
		}
	}
}

func handleQueue(s *Server, r *bufio.Reader) error {
	for {
		pkt, flush, err := wireproto.ReadPacket(r)
		if err != nil {
			return err
		}
		if flush {
			return nil
		}
		rec, err := wireproto.DecodeQueueRecord(pkt)
		if err != nil {
			return err
		}
		if err := s.Enqueue(itemFromRecord(rec)); err != nil {
			return fmt.Errorf("helperserver: enqueue: %w", err)
		}
	}
}

func itemFromRecord(rec wireproto.QueueRecord) *item.Item {
	return &item.Item{
		PCNr:     int(rec.PCNr),
		HelperNr: int(rec.HelperNr),
		OID:      string(rec.OID[:]),
		Mode:     rec.Mode,
		Path:     rec.Name,
		Attrs: convert.Attrs{
			AttrAction:          int32(rec.AttrAction),
			CRLFAction:          int32(rec.CRLFAction),
			Ident:               rec.Ident != 0,
			WorkingTreeEncoding: rec.Encoding,
		},
	}
}

// readFlush consumes the flush packet expected after a single-payload
// command: every command is followed by a flush marker.
func readFlush(r *bufio.Reader) error {
	_, flush, err := wireproto.ReadPacket(r)
	if err != nil {
		return err
	}
	if !flush {
		return fmt.Errorf("helperserver: expected flush, got another packet")
	}
	return nil
}

func handleWrite(s *Server, r *bufio.Reader) error {
	pkt, flush, err := wireproto.ReadPacket(r)
	if err != nil {
		return err
	}
	if flush {
		return fmt.Errorf("helperserver: write command missing watermark payload")
	}
	if err := readFlush(r); err != nil {
		return err
	}
	value := strings.TrimPrefix(string(pkt), "end=")
	if value == "AUTO" {
		s.Authorize(item.Auto)
		return nil
	}
	end, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("helperserver: bad write payload %q: %w", pkt, err)
	}
	s.Authorize(end)
	return nil
}

func handleGet1(s *Server, r *bufio.Reader, w io.Writer) error {
	pkt, _, err := wireproto.ReadPacket(r)
	if err != nil {
		return err
	}
	if err := readFlush(r); err != nil {
		return err
	}
	nr, err := strconv.Atoi(strings.TrimPrefix(string(pkt), "nr="))
	if err != nil {
		return fmt.Errorf("helperserver: bad get1 payload %q: %w", pkt, err)
	}
	res, err := s.WaitDone(nr)
	if err != nil {
		return err
	}
	return wireproto.WritePacket(w, resultRecord(nr, res).Encode())
}

func handleMget(s *Server, r *bufio.Reader, w io.Writer) error {
	pkt, _, err := wireproto.ReadPacket(r)
	if err != nil {
		return err
	}
	if err := readFlush(r); err != nil {
		return err
	}
	var begin, end int
	if _, err := fmt.Sscanf(string(pkt), "begin=%d end=%d", &begin, &end); err != nil {
		return fmt.Errorf("helperserver: bad mget payload %q: %w", pkt, err)
	}
	for nr := begin; nr < end; nr++ {
		res, err := s.WaitDone(nr)
		if err != nil {
			return err
		}
		if err := wireproto.WritePacket(w, resultRecord(nr, res).Encode()); err != nil {
			return err
		}
	}
	return wireproto.WriteFlush(w)
}

func resultRecord(helperNr int, res Result) wireproto.ResultRecord {
	return wireproto.ResultRecord{
		HelperNr:   uint32(helperNr),
		ErrorClass: uint8(res.ErrClass),
		Errno:      int32(res.Errno),
		Stat: wireproto.Stat{
			Size: uint64(res.Stat.Size),
			Mode: res.Stat.Mode,
		},
	}
}
