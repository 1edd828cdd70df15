package media

import "context"

// Unavailable is a Host with no capture capability at all.
type Unavailable struct{}

func (Unavailable) EnumerateDevices(context.Context) ([]RawDevice, error) {
	return nil, ErrNotSupported
}

func (Unavailable) GetUserMedia(context.Context, Constraints) (*LiveStream, error) {
	return nil, ErrNotSupported
}

func (Unavailable) NewEncoder(EncoderConfig) (Encoder, error) {
	return nil, ErrNotSupported
}
