package engine

import (
	"errors"
	"fmt"
)

// Stage names a pipeline stage in reports, logs and metrics.
type Stage string

const (
	StageIngest      Stage = "ingest"
	StageSizes       Stage = "sizes"
	StageIdentity    Stage = "identity"
	StageReplication Stage = "replication"
	StageRetention   Stage = "retention"
)

// StageError reports a stage that could not run to completion. The stages
// after it still run.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// FailedStages lists the stages named by the StageErrors joined in err.
func FailedStages(err error) []Stage {
	if err == nil {
		return nil
	}
	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}

	var stages []Stage
	for _, e := range errs {
		var se *StageError
		if errors.As(e, &se) {
			stages = append(stages, se.Stage)
		}
	}
	return stages
}
