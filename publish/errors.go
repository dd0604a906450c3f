package publish

import "errors"

var (
	ErrArtifactNotFound    = errors.New("publish: artifact not found")
	ErrArgumentMismatch    = errors.New("publish: constructor argument mismatch")
	ErrSubmissionFailed    = errors.New("publish: submission failed")
	ErrConfirmationTimeout = errors.New("publish: confirmation timeout")
	ErrDeploymentReverted  = errors.New("publish: deployment reverted")
)

func IsArtifactNotFound(err error) bool    { return errors.Is(err, ErrArtifactNotFound) }
func IsArgumentMismatch(err error) bool    { return errors.Is(err, ErrArgumentMismatch) }
func IsSubmissionFailed(err error) bool    { return errors.Is(err, ErrSubmissionFailed) }
func IsConfirmationTimeout(err error) bool { return errors.Is(err, ErrConfirmationTimeout) }
