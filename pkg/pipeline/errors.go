package pipeline

import "errors"

var (
	ErrPipelineConstructionFailed = errors.New("pipeline: construction failed")
	ErrStageExecutionFailed       = errors.New("pipeline: stage execution failed")
	ErrDataTransferFailed         = errors.New("pipeline: data transfer failed")
	ErrCancellationFailed         = errors.New("pipeline: cancellation failed")
	ErrTimeout                    = errors.New("pipeline: timed out")
	ErrTypeMismatch               = errors.New("pipeline: incompatible stage types")
)
