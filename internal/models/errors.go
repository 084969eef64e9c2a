package models

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyDocument signals that segmentation produced no units.
	ErrEmptyDocument = errors.New("no content to search")
	// ErrEmptyCorpus signals that the vectorizer received no units.
	ErrEmptyCorpus = errors.New("empty corpus")
	// ErrRetrievalTimeout signals that the embedding model exceeded its time budget.
	ErrRetrievalTimeout = errors.New("retrieval timeout")
	// ErrGenerationTimeout signals that the generative model exceeded its time budget.
	ErrGenerationTimeout = errors.New("generation timeout")
	// ErrModelUnavailable signals that a model collaborator was unreachable or rejected the request.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrConfiguration signals invalid configuration.
	ErrConfiguration = errors.New("configuration error")

	// ErrNotFound signals a missing document or object.
	ErrNotFound = errors.New("not found")
	// ErrInvalidFileType signals an upload that is not a PDF.
	ErrInvalidFileType = errors.New("invalid file type")
	// ErrFileTooLarge signals an upload over the size limit.
	ErrFileTooLarge = errors.New("file too large")
)

// Stage names a step of the answer pipeline or of the surrounding request.
type Stage string

// Pipeline and request stages.
const (
	StageSegment    Stage = "segment"
	StageVectorize  Stage = "vectorize"
	StageRank       Stage = "rank"
	StageSynthesize Stage = "synthesize"
	StageResolve    Stage = "resolve"
	StageFetch      Stage = "fetch"
	StageExtract    Stage = "extract"
)

// StageError records which stage failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// WrapStage wraps err with stage context. A nil err stays nil.
func WrapStage(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the failing stage of err, or "" when err carries none.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
