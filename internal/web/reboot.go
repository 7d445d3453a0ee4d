package web

import (
	"fmt"
	"net/http"

	"github.com/sweeney/atx-controller/internal/device"
	"github.com/sweeney/atx-controller/internal/status"
)

const rebootAction = "Controller Reboot"

// rebootResponse maps a reboot request outcome to its status code and body:
// 202 when newly scheduled, 200 when one was already pending, 503 when the
// controller cannot reboot.
func rebootResponse(r device.RebootResult) (int, status.RebootJSON) {
	body := status.RebootJSON{
		Action:     rebootAction,
		PowerState: r.Power,
	}

	switch r.Outcome {
	case device.RebootScheduled:
		body.Status = "ok"
		body.Message = fmt.Sprintf("Controller reboot scheduled; device will reset in about %s.",
			seconds(status.RoundSeconds(r.Delay)))
		body.Reboot = status.RebootInfo{
			Scheduled:       true,
			OriginalDelayMs: status.Millis(r.OriginalDelay),
			DelayMs:         status.Millis(r.Delay),
		}
		return http.StatusAccepted, body

	case device.RebootPending:
		body.Status = "pending"
		if r.Remaining > 0 {
			body.Message = fmt.Sprintf("Controller reboot already pending; about %s remaining.",
				seconds(status.RoundSeconds(r.Remaining)))
		} else {
			body.Message = "Controller reboot already pending; reset is imminent."
		}
		body.Reboot = status.RebootInfo{
			Scheduled:       true,
			OriginalDelayMs: status.Millis(r.OriginalDelay),
			RemainingMs:     status.Millis(r.Remaining),
		}
		return http.StatusOK, body
	}

	body.Status = "error"
	body.Message = "Controller reboot unavailable."
	return http.StatusServiceUnavailable, body
}

func seconds(n int64) string {
	if n == 1 {
		return "1 second"
	}
	return fmt.Sprintf("%d seconds", n)
}
