// Copyright 2021 The httpasync Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package monitor

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/gogama/httpasync"
	"github.com/gogama/httpasync/errcode"
)

// Render writes a text view of the current attempt s and the running
// summary sum to w.
func Render(w io.Writer, s httpasync.Snapshot, sum Summary) error {
	tw := tabwriter.NewWriter(w, 2, 2, 2, ' ', 0)

	fmt.Fprintf(tw, "Phase:\t%s\n", s.Phase.Label())
	fmt.Fprintf(tw, "Status:\t%s\n", statusText(s.StatusCode))
	fmt.Fprintf(tw, "Error:\t%s\n", errorText(s.Err))
	fmt.Fprintf(tw, "Handles:\trequest=%s connection=%s session=%s\n",
		held(s.Request), held(s.Connection), held(s.Session))
	if s.ID != 0 {
		fmt.Fprintf(tw, "Attempt:\t#%d trace=%s\n", s.ID, s.Trace)
	}
	if d := s.Duration(); d > 0 {
		fmt.Fprintf(tw, "Duration:\t%s\n", d.Round(time.Microsecond))
	}
	fmt.Fprintf(tw, "Attempts:\t%d (succeeded %d, non-2xx %d, failed %d, canceled %d)\n",
		sum.Attempts, sum.Count(Succeeded), sum.Count(NonSuccess), sum.Count(Failed), sum.Count(Canceled))
	if sum.Max > 0 {
		fmt.Fprintf(tw, "Latency:\tp50=%s p90=%s p99=%s max=%s\n",
			round(sum.P50), round(sum.P90), round(sum.P99), round(sum.Max))
	}

	return tw.Flush()
}

func statusText(code int) string {
	switch {
	case code == 0:
		return "-"
	case code >= 200 && code < 300:
		return strconv.Itoa(code) + " (success)"
	default:
		return strconv.Itoa(code) + " (non-2xx)"
	}
}

func errorText(e *httpasync.AttemptError) string {
	if e == nil {
		return "-"
	}
	text := fmt.Sprintf("%s code=%d", e.Kind, e.Code)
	if e.Err != nil {
		text += " (" + errcode.Categorize(e.Err).String() + ")"
	}
	return text
}

func held(b bool) string {
	if b {
		return "open"
	}
	return "released"
}

func round(d time.Duration) time.Duration {
	return d.Round(time.Microsecond)
}
