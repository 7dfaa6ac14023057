package ignite

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang/snappy"
)

// MagicReport prefixes every encoded report.
var MagicReport = [4]byte{'I', 'G', 'R', 'P'}

// ReportCodecVersion is the current report encoding version.
const ReportCodecVersion byte = 1

const reportHeaderSize = 5

// EncodeReport serialises a report as magic, version, then snappy-compressed JSON.
func EncodeReport(r *Report) ([]byte, error) {
	if r == nil {
		return nil, errors.New("nil report")
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	buf := make([]byte, reportHeaderSize, reportHeaderSize+snappy.MaxEncodedLen(len(raw)))
	copy(buf[:4], MagicReport[:])
	buf[4] = ReportCodecVersion
	return append(buf, snappy.Encode(nil, raw)...), nil
}

// DecodeReport reverses EncodeReport.
func DecodeReport(data []byte) (*Report, error) {
	if len(data) < reportHeaderSize || !bytes.Equal(data[:4], MagicReport[:]) {
		return nil, newStorageError(StorageErrorTypeCorruption, "invalid report header", "", nil)
	}
	if data[4] != ReportCodecVersion {
		return nil, newStorageError(StorageErrorTypeCorruption, fmt.Sprintf("unsupported report version %d", data[4]), "", nil)
	}
	raw, err := snappy.Decode(nil, data[reportHeaderSize:])
	if err != nil {
		return nil, newStorageError(StorageErrorTypeCorruption, "decompress report", "", err)
	}
	var r Report
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, newStorageError(StorageErrorTypeCorruption, "unmarshal report", "", err)
	}
	return &r, nil
}
