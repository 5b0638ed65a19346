package assets

import (
	"fmt"

	"github.com/rohmanhakim/docs-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-crawler/pkg/failure"
)

type AssetsErrorCause string

const (
	ErrCauseImageDownloadFailure  AssetsErrorCause = "failed to download image"
	ErrCauseNetworkFailure        AssetsErrorCause = "network failure"
	ErrCauseAssetTooLarge         AssetsErrorCause = "asset exceeds max size"
	ErrCauseRequest5xx            AssetsErrorCause = "server error"
	ErrCauseRequestTooMany        AssetsErrorCause = "rate limited"
	ErrCauseRequestPageForbidden  AssetsErrorCause = "forbidden or client error"
	ErrCauseRedirectLimitExceeded AssetsErrorCause = "redirect error"
	ErrCauseReadResponseBodyError AssetsErrorCause = "failed to read response body"
	ErrCauseHashError             AssetsErrorCause = "hash computation failed"
	ErrCausePathError             AssetsErrorCause = "path error"
	ErrCauseWriteFailure          AssetsErrorCause = "write failed"
	ErrCauseDiskFull              AssetsErrorCause = "disk full"
)

type AssetsError struct {
	Message   string
	Retryable bool
	Cause     AssetsErrorCause
}

func (e *AssetsError) Error() string {
	return fmt.Sprintf("assets error: %s", e.Cause)
}

func (e *AssetsError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *AssetsError) IsRetryable() bool {
	return e.Retryable
}

// mapAssetsErrorToMetadataCause maps assets-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapAssetsErrorToMetadataCause(err AssetsError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseImageDownloadFailure, ErrCauseNetworkFailure, ErrCauseRequest5xx,
		ErrCauseRequestTooMany, ErrCauseReadResponseBodyError:
		return metadata.CauseNetworkFailure
	case ErrCauseAssetTooLarge, ErrCauseRequestPageForbidden, ErrCauseRedirectLimitExceeded:
		return metadata.CausePolicyDisallow
	case ErrCauseHashError:
		return metadata.CauseContentInvalid
	case ErrCausePathError, ErrCauseWriteFailure, ErrCauseDiskFull:
		return metadata.CauseStorageFailure
	default:
		return metadata.CauseUnknown
	}
}
