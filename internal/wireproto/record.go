package wireproto

import (
	"encoding/binary"
	"fmt"
)

// oidSize is the width of a SHA-1 object id; repository-format negotiation
// for SHA-256 objects is out of scope, so this package does not vary it.
const oidSize = 20

// Stat is the trailing fixed-width stat structure every result record
// carries, with explicit field widths chosen for cross-platform
// determinism rather than mapping directly onto syscall.Stat_t (whose
// field widths and ordering vary per platform).
type Stat struct {
	Dev       uint64
	Ino       uint64
	UID       uint32
	GID       uint32
	Size      uint64
	MtimeSec  uint64
	MtimeNsec uint32
	Mode      uint32
}

// statRecordWidth is the encoded byte width of a Stat.
const statRecordWidth = 8 + 8 + 4 + 4 + 8 + 8 + 4 + 4

func (s Stat) encode(buf []byte) {
	binary.BigEndian.PutUint64(buf[0:8], s.Dev)
	binary.BigEndian.PutUint64(buf[8:16], s.Ino)
	binary.BigEndian.PutUint32(buf[16:20], s.UID)
	binary.BigEndian.PutUint32(buf[20:24], s.GID)
	binary.BigEndian.PutUint64(buf[24:32], s.Size)
	binary.BigEndian.PutUint64(buf[32:40], s.MtimeSec)
	binary.BigEndian.PutUint32(buf[40:44], s.MtimeNsec)
	binary.BigEndian.PutUint32(buf[44:48], s.Mode)
}

func decodeStat(buf []byte) Stat {
	return Stat{
		Dev:       binary.BigEndian.Uint64(buf[0:8]),
		Ino:       binary.BigEndian.Uint64(buf[8:16]),
		UID:       binary.BigEndian.Uint32(buf[16:20]),
		GID:       binary.BigEndian.Uint32(buf[20:24]),
		Size:      binary.BigEndian.Uint64(buf[24:32]),
		MtimeSec:  binary.BigEndian.Uint64(buf[32:40]),
		MtimeNsec: binary.BigEndian.Uint32(buf[40:44]),
		Mode:      binary.BigEndian.Uint32(buf[44:48]),
	}
}

// QueueRecord is one `queue` command entry: the index position pair
// identifying the item, its mode and conversion flags, the blob oid, and
// the trailing encoding/path byte strings.
type QueueRecord struct {
	PCNr       uint32
	HelperNr   uint32
	Mode       uint32
	AttrAction uint8
	CRLFAction uint8
	Ident      uint8
	OID        [oidSize]byte
	Encoding   string
	Name       string
}

const queueRecordFixedWidth = 4 + 4 + 4 + 1 + 1 + 1 + 1 /*pad*/ + 4 + 4 + oidSize

// Encode packs the record as a single packet payload (fixed header,
// OID, then the encoding and name byte strings back to back).
func (r QueueRecord) Encode() []byte {
	buf := make([]byte, queueRecordFixedWidth+len(r.Encoding)+len(r.Name))
	binary.BigEndian.PutUint32(buf[0:4], r.PCNr)
	binary.BigEndian.PutUint32(buf[4:8], r.HelperNr)
	binary.BigEndian.PutUint32(buf[8:12], r.Mode)
	buf[12] = r.AttrAction
	buf[13] = r.CRLFAction
	buf[14] = r.Ident
	// buf[15] is padding, left zero.
	binary.BigEndian.PutUint32(buf[16:20], uint32(len(r.Encoding)))
	binary.BigEndian.PutUint32(buf[20:24], uint32(len(r.Name)))
	copy(buf[24:24+oidSize], r.OID[:])
	off := 24 + oidSize
	off += copy(buf[off:], r.Encoding)
	copy(buf[off:], r.Name)
	return buf
}

// DecodeQueueRecord is the inverse of Encode.
func DecodeQueueRecord(buf []byte) (QueueRecord, error) {
	if len(buf) < queueRecordFixedWidth {
		return QueueRecord{}, fmt.Errorf("wireproto: queue record too short (%d bytes)", len(buf))
	}
	var r QueueRecord
	r.PCNr = binary.BigEndian.Uint32(buf[0:4])
	r.HelperNr = binary.BigEndian.Uint32(buf[4:8])
	r.Mode = binary.BigEndian.Uint32(buf[8:12])
	r.AttrAction = buf[12]
	r.CRLFAction = buf[13]
	r.Ident = buf[14]
	lenEncoding := binary.BigEndian.Uint32(buf[16:20])
	lenName := binary.BigEndian.Uint32(buf[20:24])
	copy(r.OID[:], buf[24:24+oidSize])
	off := 24 + oidSize
	want := off + int(lenEncoding) + int(lenName)
	if len(buf) != want {
		return QueueRecord{}, fmt.Errorf("wireproto: queue record length mismatch: have %d want %d", len(buf), want)
	}
	r.Encoding = string(buf[off : off+int(lenEncoding)])
	off += int(lenEncoding)
	r.Name = string(buf[off : off+int(lenName)])
	return r, nil
}

// ResultRecord is one completed item's outcome (error class, errno, and
// final stat), reported back on the `get1`/`mget` response stream (`write`
// has no reply).
type ResultRecord struct {
	PCNr       uint32
	HelperNr   uint32
	ErrorClass uint8
	Errno      int32
	Stat       Stat
}

const resultRecordWidth = 4 + 4 + 1 + 3 /*pad*/ + 4 + statRecordWidth

// Encode packs a ResultRecord as a fixed-width packet payload.
func (r ResultRecord) Encode() []byte {
	buf := make([]byte, resultRecordWidth)
	binary.BigEndian.PutUint32(buf[0:4], r.PCNr)
	binary.BigEndian.PutUint32(buf[4:8], r.HelperNr)
	buf[8] = r.ErrorClass
	binary.BigEndian.PutUint32(buf[12:16], uint32(r.Errno))
	r.Stat.encode(buf[16 : 16+statRecordWidth])
	return buf
}

// DecodeResultRecord is the inverse of Encode.
func DecodeResultRecord(buf []byte) (ResultRecord, error) {
	if len(buf) != resultRecordWidth {
		return ResultRecord{}, fmt.Errorf("wireproto: result record width %d, want %d", len(buf), resultRecordWidth)
	}
	var r ResultRecord
	r.PCNr = binary.BigEndian.Uint32(buf[0:4])
	r.HelperNr = binary.BigEndian.Uint32(buf[4:8])
	r.ErrorClass = buf[8]
	r.Errno = int32(binary.BigEndian.Uint32(buf[12:16]))
	r.Stat = decodeStat(buf[16 : 16+statRecordWidth])
	return r, nil
}
