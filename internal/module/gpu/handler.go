package gpu

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ktolnos/slurm-utils/internal/availability"
	"github.com/ktolnos/slurm-utils/internal/pkg/common/slurmtime"
	"github.com/ktolnos/slurm-utils/internal/pkg/response"
	"github.com/ktolnos/slurm-utils/internal/selection"
)

type AvailabilityQuery struct {
	Counts      bool   `form:"counts"`
	MaxDuration string `form:"max_duration"`
}

// Availability is one resolver pass over the cluster. Types is set in
// presence mode, Free in counts mode, never both.
type Availability struct {
	Mode    string                    `json:"mem_mode"`
	Types   []string                  `json:"types,omitempty"`
	Free    map[string]int            `json:"free,omitempty"`
	Skipped *availability.Diagnostics `json:"skipped,omitempty"`
}

// HandlerGetAvailability reports the GPU types with free capacity on healthy,
// sufficiently-resourced nodes. With counts=true the free slot count per type
// is included; max_duration narrows the scan to partitions whose time limit
// admits it. Concurrent identical requests share one in-flight scan; finished
// scans are never reused since cluster occupancy changes continuously.
func (rt *Router) HandlerGetAvailability(c *gin.Context) {
	var q AvailabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, response.Response{Detail: "invalid query parameters: " + err.Error()})
		return
	}

	var maxDuration *slurmtime.Limit
	if q.MaxDuration != "" {
		limit, err := slurmtime.Parse(q.MaxDuration)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Response{Detail: err.Error()})
			return
		}
		maxDuration = &limit
	}

	ctx := c.Request.Context()
	key := fmt.Sprintf("max_duration=%s", q.MaxDuration)
	v, err, _ := rt.g.Do(key, func() (any, error) {
		return availability.Scan(ctx, rt.src, maxDuration, rt.th, rt.logger)
	})
	if err != nil {
		rt.logger.Error("unable to resolve gpu availability", "err", err)
		c.JSON(http.StatusInternalServerError, response.Response{Detail: "unable to resolve gpu availability: " + err.Error()})
		return
	}
	res := v.(availability.ScanResult)

	av := Availability{Mode: res.Mode.String()}
	if q.Counts {
		av.Free = res.Report.FreeMap()
	} else {
		av.Types = res.Report.Types()
	}
	if res.Report.Empty() && res.Diag.EligibilitySkips() > 0 {
		diag := res.Diag
		av.Skipped = &diag
	}
	c.JSON(http.StatusOK, response.Response{Results: av})
}

type SelectionRequest struct {
	// Preferences is the ordered preference list; when empty, Script is
	// searched for a preference header instead.
	Preferences []string `json:"preferences"`
	Script      string   `json:"script"`
}

type Selection struct {
	Override  bool   `json:"override"`
	Request   string `json:"request,omitempty"`
	Available bool   `json:"available,omitempty"`
}

// HandlerPostSelection picks one GPU type from an ordered preference list,
// falling back to the first preference when none is currently free. A script
// without a preference header yields no override, mirroring submission glue
// that passes the original resource request through untouched.
func (rt *Router) HandlerPostSelection(c *gin.Context) {
	var req SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Response{Detail: "invalid request body: " + err.Error()})
		return
	}

	prefs := req.Preferences
	if len(prefs) == 0 && req.Script != "" {
		prefs = selection.ParsePreferences(req.Script)
	}
	if len(prefs) == 0 {
		if req.Script != "" {
			// No header in the script: the policy is a no-op, not an error.
			c.JSON(http.StatusOK, response.Response{Results: Selection{Override: false}})
			return
		}
		c.JSON(http.StatusBadRequest, response.Response{Detail: "no preferences given and no script to read them from"})
		return
	}

	res, err := availability.Scan(c.Request.Context(), rt.src, nil, rt.th, rt.logger)
	if err != nil {
		rt.logger.Error("unable to resolve gpu availability", "err", err)
		c.JSON(http.StatusInternalServerError, response.Response{Detail: "unable to resolve gpu availability: " + err.Error()})
		return
	}

	choice, err := selection.Pick(prefs, res.Report)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Response{Detail: err.Error()})
		return
	}
	if !choice.Available {
		rt.logger.Info("no preferred gpu type currently free, queueing on first preference", "type", choice.Type)
	}
	c.JSON(http.StatusOK, response.Response{Results: Selection{
		Override:  true,
		Request:   choice.Request(),
		Available: choice.Available,
	}})
}
