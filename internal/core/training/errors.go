package training

import "errors"

var ErrTrainingNotFound = errors.New("training: not found")
