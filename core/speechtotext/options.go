// Package speechtotext defines the transcription provider contract.
package speechtotext

import "github.com/intellitutor/voicerelay/core/audio"

type TranscriptionOptions struct {
	// InterimTranscriptionCallback is called for provisional transcripts that
	// the provider may still revise.
	InterimTranscriptionCallback func(transcript string)
	// TranscriptionCallback is called for transcripts the provider marks as
	// final.
	TranscriptionCallback func(transcript string)
	// ErrorCallback is called for provider-reported errors that do not end
	// the transcription stream.
	ErrorCallback func(err error)
	// DisconnectCallback is called once when the provider connection is lost
	// or closed; no further callbacks fire after it.
	DisconnectCallback func()

	EncodingInfo audio.EncodingInfo
}

type TranscriptionOption func(*TranscriptionOptions)

func WithTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) { o.TranscriptionCallback = callback }
}

func WithInterimTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) { o.InterimTranscriptionCallback = callback }
}

func WithErrorCallback(callback func(err error)) TranscriptionOption {
	return func(o *TranscriptionOptions) { o.ErrorCallback = callback }
}

func WithDisconnectCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) { o.DisconnectCallback = callback }
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TranscriptionOption {
	return func(o *TranscriptionOptions) { o.EncodingInfo = encodingInfo }
}
