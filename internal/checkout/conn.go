// Package checkout implements the foreground parallel-checkout coordinator:
// startup eligibility evaluation, distribution across helper subprocesses,
// synchronous and asynchronous write modes, and the collision-detection
// sequential retry pass.
package checkout

import (
	"bufio"
	"fmt"

	"github.com/gitkit/parafs/internal/item"
	"github.com/gitkit/parafs/internal/wireproto"
)

// Conn is one helper's wire connection as seen by the coordinator. The real
// implementation (pipeConn) wraps a subprocess's stdin/stdout; tests use an
// in-process fake so the distribution/sync/async logic can be exercised
// without spawning a binary.
type Conn interface {
	// Queue sends zero or more queue records followed by a flush.
	Queue(records []wireproto.QueueRecord) error
	// SetWatermark sends `write end=<N>` (or item.Auto for AUTO).
	SetWatermark(end int) error
	// Get1 sends `get1 nr=<k>` and returns the single result record.
	Get1(k int) (wireproto.ResultRecord, error)
	// Mget sends `mget begin=a end=b` and returns one result record per item.
	Mget(begin, end int) ([]wireproto.ResultRecord, error)
	// Close closes the helper's stdin, signalling end of work, and waits
	// for the subprocess to exit.
	Close() error
}

// pipeConn is the real Conn backed by a subprocess's stdin/stdout, framed
// with wireproto's packet-line encoding.
type pipeConn struct {
	stdin   writeCloser
	stdout  *bufio.Reader
	process process
}

// writeCloser and process are the minimal subprocess surfaces pipeConn
// needs; cmd/git-checkout-helper's caller supplies an *os/exec.Cmd backed
// implementation, kept out of this package to avoid importing os/exec here.
type writeCloser interface {
	Write(p []byte) (int, error)
	Close() error
}

type process interface {
	Wait() error
}

// NewPipeConn wraps a spawned helper's stdin/stdout/process handle as a
// Conn, performing the version/capability handshake before returning.
func NewPipeConn(stdin writeCloser, stdout *bufio.Reader, proc process) (Conn, error) {
	if err := wireproto.WriteHandshake(stdin, wireproto.SupportedVersion, []wireproto.Capability{
		wireproto.CapQueue, wireproto.CapWrite, wireproto.CapGet1, wireproto.CapMget,
	}); err != nil {
		return nil, fmt.Errorf("checkout: sending handshake: %w", err)
	}
	hs, err := wireproto.ReadHandshake(stdout)
	if err != nil {
		return nil, fmt.Errorf("checkout: reading helper handshake: %w", err)
	}
	for _, c := range []wireproto.Capability{wireproto.CapQueue, wireproto.CapWrite, wireproto.CapGet1, wireproto.CapMget} {
		if !hs.Supports(c) {
			return nil, fmt.Errorf("checkout: helper did not advertise required capability %q", c)
		}
	}
	return &pipeConn{stdin: stdin, stdout: stdout, process: proc}, nil
}

func (c *pipeConn) Queue(records []wireproto.QueueRecord) error {
	if err := wireproto.WriteCommand(c.stdin, wireproto.CmdQueue); err != nil {
		return err
	}
	for _, r := range records {
		if err := wireproto.WritePacket(c.stdin, r.Encode()); err != nil {
			return err
		}
	}
	return wireproto.WriteFlush(c.stdin)
}

func (c *pipeConn) SetWatermark(end int) error {
	if err := wireproto.WriteCommand(c.stdin, wireproto.CmdWrite); err != nil {
		return err
	}
	value := fmt.Sprintf("end=%d", end)
	if end == item.Auto {
		value = "end=AUTO"
	}
	if err := wireproto.WritePacket(c.stdin, []byte(value)); err != nil {
		return err
	}
	return wireproto.WriteFlush(c.stdin)
}

func (c *pipeConn) Get1(k int) (wireproto.ResultRecord, error) {
	if err := wireproto.WriteCommand(c.stdin, wireproto.CmdGet1); err != nil {
		return wireproto.ResultRecord{}, err
	}
	if err := wireproto.WritePacket(c.stdin, []byte(fmt.Sprintf("nr=%d", k))); err != nil {
		return wireproto.ResultRecord{}, err
	}
	if err := wireproto.WriteFlush(c.stdin); err != nil {
		return wireproto.ResultRecord{}, err
	}
	return readResultRecord(c.stdout)
}

func (c *pipeConn) Mget(begin, end int) ([]wireproto.ResultRecord, error) {
	if err := wireproto.WriteCommand(c.stdin, wireproto.CmdMget); err != nil {
		return nil, err
	}
	if err := wireproto.WritePacket(c.stdin, []byte(fmt.Sprintf("begin=%d end=%d", begin, end))); err != nil {
		return nil, err
	}
	if err := wireproto.WriteFlush(c.stdin); err != nil {
		return nil, err
	}
	results := make([]wireproto.ResultRecord, 0, end-begin)
	for i := begin; i < end; i++ {
		rec, err := readResultRecord(c.stdout)
		if err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	if _, flush, err := wireproto.ReadPacket(c.stdout); err != nil {
		return nil, err
	} else if !flush {
		return nil, fmt.Errorf("checkout: mget response not flush-terminated")
	}
	return results, nil
}

func readResultRecord(r *bufio.Reader) (wireproto.ResultRecord, error) {
	pkt, flush, err := wireproto.ReadPacket(r)
	if err != nil {
		return wireproto.ResultRecord{}, err
	}
	if flush {
		return wireproto.ResultRecord{}, fmt.Errorf("checkout: expected result record, got flush")
	}
	return wireproto.DecodeResultRecord(pkt)
}

func (c *pipeConn) Close() error {
	if err := c.stdin.Close(); err != nil {
		return err
	}
	return c.process.Wait()
}
