package model

// UploadStatus is the state of a single file within a batch upload.
type UploadStatus string

const (
	UploadPending   UploadStatus = "pending"
	UploadUploading UploadStatus = "uploading"
	UploadSuccess   UploadStatus = "success"
	UploadError     UploadStatus = "error"
)

// Valid transitions:
// pending -> uploading -> success
//        \           \-> error
//         \-> error  (no presigned url, cancelled before start)
var validUploadTransitions = map[UploadStatus][]UploadStatus{
	UploadPending:   {UploadUploading, UploadError},
	UploadUploading: {UploadSuccess, UploadError},
	UploadSuccess:   {},
	UploadError:     {},
}

func (s UploadStatus) CanTransitionTo(next UploadStatus) bool {
	for _, status := range validUploadTransitions[s] {
		if status == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s UploadStatus) IsTerminal() bool {
	return s == UploadSuccess || s == UploadError
}

// UploadTask tracks one file during a batch upload. It is never persisted.
type UploadTask struct {
	FileID    string
	FileName  string
	Status    UploadStatus
	Progress  int
	ResultURL string
	Key       string
	Error     string
}

// Start moves a pending task to uploading.
func (t *UploadTask) Start() bool {
	return t.transition(UploadUploading)
}

// Succeed records the uploaded object.
func (t *UploadTask) Succeed(url, key string) bool {
	if !t.transition(UploadSuccess) {
		return false
	}
	t.Progress = 100
	t.ResultURL = url
	t.Key = key
	return true
}

// Fail records a terminal error.
func (t *UploadTask) Fail(msg string) bool {
	if !t.transition(UploadError) {
		return false
	}
	t.Error = msg
	return true
}

func (t *UploadTask) transition(next UploadStatus) bool {
	if !t.Status.CanTransitionTo(next) {
		return false
	}
	t.Status = next
	return true
}
