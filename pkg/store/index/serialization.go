package index

import (
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/marmos91/syncust/pkg/metadata"
	"github.com/pkg/errors"
)

// Serialization Strategy
// ======================
//
// Values are CBOR maps with small integer keys. CBOR keeps records compact
// (an index can hold millions of them) while staying self-describing, so
// fields can be added without a migration. The modification time is stored
// as Unix nanoseconds because the default CBOR time encoding truncates to
// seconds, which would turn every re-scan into a false change candidate.

type recordWire struct {
	Hash        string `cbor:"1,keyasint,omitempty"`
	IsDir       bool   `cbor:"2,keyasint"`
	IsSymlink   bool   `cbor:"3,keyasint"`
	Length      uint64 `cbor:"4,keyasint"`
	ModifiedNs  int64  `cbor:"5,keyasint"`
	Permissions uint32 `cbor:"6,keyasint"`
}

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

// encodeRecord serializes a FileRecord for storage.
func encodeRecord(rec *metadata.FileRecord) ([]byte, error) {
	if rec == nil {
		return nil, errors.New("nil record")
	}
	data, err := encMode.Marshal(recordWire{
		Hash:        rec.Hash,
		IsDir:       rec.IsDir,
		IsSymlink:   rec.IsSymlink,
		Length:      rec.Length,
		ModifiedNs:  rec.Modified.UnixNano(),
		Permissions: rec.Permissions,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode record")
	}
	return data, nil
}

// decodeRecord is the inverse of encodeRecord.
func decodeRecord(data []byte) (*metadata.FileRecord, error) {
	var w recordWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, errors.Wrap(err, "failed to decode record")
	}
	return &metadata.FileRecord{
		Hash:        w.Hash,
		IsDir:       w.IsDir,
		IsSymlink:   w.IsSymlink,
		Length:      w.Length,
		Modified:    time.Unix(0, w.ModifiedNs),
		Permissions: w.Permissions,
	}, nil
}
