package domain

import "errors"

// ErrNotEnrolled the viewer has no access to the course or lesson
var ErrNotEnrolled = errors.New("Viewer is not enrolled in this course")

// ErrLessonNotFound the requested lesson does not exist upstream
var ErrLessonNotFound = errors.New("Lesson does not exist")

// ErrStreamNotReady the video is still being processed upstream
var ErrStreamNotReady = errors.New("Stream is still being prepared")

// ErrPlaybackUnsupported no viable local playback path for the resolved source
var ErrPlaybackUnsupported = errors.New("Playback is not supported on this device")

// ErrNoSuchSession the playback session id is unknown or already expired
var ErrNoSuchSession = errors.New("No such playback session")
