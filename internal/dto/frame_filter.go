// FrameFilter narrows journal queries.
package dto

import "time"

type FrameFilter struct {
	SessionID string
	Label     string
	Since     time.Time
	Limit     int
	Offset    int
}
