// Manager drives the PDR retrieval/parse pipeline described in spec §4.3:
// fetch RepositoryInfo, walk record handles, assemble each record through
// a multi-part transfer, parse it, and hand the result set to
// BuildRepository.
package pdr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openpldm/pldmd/internal/codec"
	"github.com/openpldm/pldmd/internal/identifier"
	"github.com/openpldm/pldmd/internal/pldmerr"
	"github.com/openpldm/pldmd/internal/retry"
	"github.com/openpldm/pldmd/internal/transport"
	"github.com/rs/zerolog/log"
)

// maxSegmentsPerRecord bounds a single record's multi-part transfer (spec
// §4.3: "more than 100 segments for a single record aborts and discards
// that record").
const maxSegmentsPerRecord = 100

// RepositoryRetries is the repo-level retry ceiling (spec §4.3: "retried
// up to 3 times at the repo level"). A var, not a const, so cmd/pldmd can
// override it from internal/config's loaded Timeouts.
var RepositoryRetries = 3

// RequestTimeout bounds each PDR command round-trip.
var RequestTimeout = 100 * time.Millisecond

// Manager fetches and parses one device's PDR repository.
type Manager struct {
	transport *transport.Adapter
}

// NewManager builds a Manager over the shared transport adapter.
func NewManager(t *transport.Adapter) *Manager {
	return &Manager{transport: t}
}

// Retrieve fetches, assembles, and parses the repository for tid,
// retrying the whole operation up to RepositoryRetries times (spec
// §4.3).
func (m *Manager) Retrieve(ctx context.Context, tid identifier.TID, locationHint string) (*Repository, error) {
	backoff := retry.FixedDelay(RequestTimeout)
	var lastErr error
	for attempt := 1; attempt <= RepositoryRetries; attempt++ {
		repo, err := m.retrieveOnce(ctx, tid, locationHint)
		if err == nil {
			return repo, nil
		}
		lastErr = err
		log.Warn().Uint8("tid", uint8(tid)).Int("attempt", attempt).Err(err).Msg("pdr: repository retrieval attempt failed")
		if attempt < RepositoryRetries {
			retry.Sleep(ctx.Done(), backoff, attempt)
		}
	}
	return nil, fmt.Errorf("pdr: repository retrieval failed after %d attempts: %w", RepositoryRetries, lastErr)
}

func (m *Manager) retrieveOnce(ctx context.Context, tid identifier.TID, locationHint string) (*Repository, error) {
	info, err := m.fetchRepositoryInfo(ctx, tid)
	if err != nil {
		return nil, err
	}
	if info.RepositoryState != codec.RepoStateAvailable {
		return nil, pldmerr.ErrRepoUnavailable
	}
	if info.RecordCount == 0 {
		return nil, pldmerr.ErrRepoEmpty
	}

	records := make([]Record, 0, info.RecordCount)
	handle := uint32(0)
	for {
		rec, nextHandle, recErr := m.fetchRecord(ctx, tid, handle, info.LargestRecordSize)
		if recErr != nil {
			if !isDroppableRecordError(recErr) {
				return nil, recErr
			}
			log.Warn().Uint8("tid", uint8(tid)).Uint32("handle", handle).Err(recErr).Msg("pdr: dropping record")
		} else {
			records = append(records, rec)
		}
		if nextHandle == 0 || len(records) >= int(info.RecordCount) {
			break
		}
		handle = nextHandle
	}

	if uint32(len(records)) != info.RecordCount {
		return nil, fmt.Errorf("%w: expected %d records, assembled %d", pldmerr.ErrInconsistentRepo, info.RecordCount, len(records))
	}

	return BuildRepository(tid, locationHint, records)
}

func isDroppableRecordError(err error) bool {
	return errors.Is(err, pldmerr.ErrCrcMismatch) || errors.Is(err, pldmerr.ErrRecordOverSize) || errors.Is(err, pldmerr.ErrTooManyRetries)
}

func (m *Manager) fetchRepositoryInfo(ctx context.Context, tid identifier.TID) (codec.GetPDRRepositoryInfoResponse, error) {
	reqPayload, _ := codec.EncodeGetPDRRepositoryInfoRequest()
	resp, err := m.transport.SendRequest(ctx, tid, transport.Request{
		PLDMType: codec.PldmTypePlatform,
		Command:  codec.CmdGetPDRRepositoryInfo,
		Payload:  reqPayload,
	}, RequestTimeout, 3)
	if err != nil {
		return codec.GetPDRRepositoryInfoResponse{}, err
	}
	out, err := codec.DecodeGetPDRRepositoryInfoResponse(resp.Payload)
	if err != nil {
		return codec.GetPDRRepositoryInfoResponse{}, err
	}
	if out.CompletionCode != codec.CcSuccess {
		return codec.GetPDRRepositoryInfoResponse{}, pldmerr.CompletionCodeError{Command: codec.CmdGetPDRRepositoryInfo, Code: out.CompletionCode}
	}
	return out, nil
}

// fetchRecord assembles one record via multi-part transfer starting at
// recordHandle (spec §4.3 "Each record is assembled via multi-part
// transfer"). It always returns the next record handle to resume walking
// from, even when the record itself is dropped.
func (m *Manager) fetchRecord(ctx context.Context, tid identifier.TID, recordHandle, largestRecordSize uint32) (Record, uint32, error) {
	var (
		accumulated  []byte
		dataHandle   uint32
		opFlag       = codec.TransferOpGetFirstPart
		changeNumber uint16
		nextRecord   uint32
	)

	for segment := 0; ; segment++ {
		if segment >= maxSegmentsPerRecord {
			return Record{}, nextRecord, fmt.Errorf("%w: record %d exceeded %d segments", pldmerr.ErrTooManyRetries, recordHandle, maxSegmentsPerRecord)
		}
		reqPayload, _ := codec.EncodeGetPDRRequest(codec.GetPDRRequest{
			RecordHandle:       recordHandle,
			DataTransferHandle: dataHandle,
			TransferOpFlag:     opFlag,
			RequestCount:       uint16(largestRecordSize),
			RecordChangeNumber: changeNumber,
		})
		resp, err := m.transport.SendRequest(ctx, tid, transport.Request{
			PLDMType: codec.PldmTypePlatform,
			Command:  codec.CmdGetPDR,
			Payload:  reqPayload,
		}, RequestTimeout, 3)
		if err != nil {
			return Record{}, nextRecord, err
		}
		out, err := codec.DecodeGetPDRResponse(resp.Payload)
		if err != nil {
			return Record{}, nextRecord, err
		}
		if out.CompletionCode != codec.CcSuccess {
			return Record{}, nextRecord, pldmerr.CompletionCodeError{Command: codec.CmdGetPDR, Code: out.CompletionCode}
		}
		nextRecord = out.NextRecordHandle
		accumulated = append(accumulated, out.Data...)
		if uint32(len(accumulated)) > largestRecordSize {
			return Record{}, nextRecord, fmt.Errorf("%w: record %d exceeded largest-record-size %d", pldmerr.ErrRecordOverSize, recordHandle, largestRecordSize)
		}

		switch out.TransferFlag {
		case codec.TransferFlagStartAndEnd:
			return finishRecord(recordHandle, accumulated, nextRecord, 0, false)
		case codec.TransferFlagEnd:
			return finishRecord(recordHandle, accumulated, nextRecord, out.Crc, true)
		default:
			dataHandle = out.NextDataTransferHandle
			opFlag = codec.TransferOpGetNextPart
			continue
		}
	}
}

func finishRecord(handle uint32, data []byte, nextHandle uint32, crc uint8, checkCrc bool) (Record, uint32, error) {
	// The first byte of the accumulated payload carries the record type;
	// the remainder is the type-specific body (spec §3: "opaque header +
	// typed payload by record-type").
	if len(data) < 1 {
		return Record{}, nextHandle, fmt.Errorf("%w: record %d empty", pldmerr.ErrRecordOverSize, handle)
	}
	recordType := RecordType(data[0])
	body := data[1:]

	if checkCrc {
		if codec.CRC8(body) != crc {
			return Record{}, nextHandle, fmt.Errorf("%w: record %d", pldmerr.ErrCrcMismatch, handle)
		}
	}

	rec, err := ParseRecord(handle, recordType, body)
	if err != nil {
		return Record{}, nextHandle, err
	}
	return rec, nextHandle, nil
}
