package scheduler

import "time"

// DefaultFrameInterval approximates a 30 Hz refresh.
const DefaultFrameInterval = time.Second / 30
