// Package texttospeech defines the speech synthesis provider contract.
package texttospeech

type SynthesisOptions struct {
	// Encoding is the audio container/encoding requested from the provider.
	// The default is mp3, which browsers can play directly.
	Encoding string
}

type SynthesisOption func(*SynthesisOptions)

func WithEncoding(encoding string) SynthesisOption {
	return func(o *SynthesisOptions) {
		if encoding == "" {
			return
		}
		o.Encoding = encoding
	}
}
