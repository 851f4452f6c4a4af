//go:build !darwin

package midi

import "go.uber.org/zap"

func coreMIDIPorts() ([]Port, error) {
	return nil, ErrUnsupported
}

func openCoreMIDI(int, *zap.Logger) (Listener, error) {
	return nil, ErrUnsupported
}
