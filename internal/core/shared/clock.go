package shared

import "time"

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

// RealClock は UTC の現在時刻を返す Clock です。
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now().UTC()
}
