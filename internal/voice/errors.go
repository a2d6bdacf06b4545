package voice

import (
	"errors"
	"fmt"
)

// Ошибки контроллера голосового интервью
var (
	ErrSynthesisBusy      = errors.New("speech synthesis is already in progress")
	ErrCaptureUnavailable = errors.New("speech capture is unavailable")
	ErrCaptureInProgress  = fmt.Errorf("capture already in progress: %w", ErrCaptureUnavailable)
	ErrCaptureDevice      = errors.New("speech capture device failed")
	ErrSynthesis          = errors.New("speech synthesis failed")
	ErrInterviewFinished  = errors.New("interview is finished")
)
