package selection

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/ktolnos/slurm-utils/internal/availability"
)

// HeaderMarker begins the script line carrying the GPU preference list, e.g.
//
//	#GPU_PREFERENCE: h100,a100,v100
//
// Only the first such line in a script is honored.
const HeaderMarker = "#GPU_PREFERENCE:"

// ParsePreferences returns the ordered preference list from a job script's
// header line, or nil when the script carries none.
func ParsePreferences(script string) []string {
	sc := bufio.NewScanner(strings.NewReader(script))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, HeaderMarker) {
			continue
		}
		var prefs []string
		for _, p := range strings.Split(line[len(HeaderMarker):], ",") {
			if p = strings.TrimSpace(p); p != "" {
				prefs = append(prefs, p)
			}
		}
		return prefs
	}
	return nil
}

// Choice is the outcome of one selection. Available is false when the policy
// fell back to the first preference despite it having no free capacity.
type Choice struct {
	Type      string
	Available bool
}

// Request formats the choice as a single-slot resource request.
func (c Choice) Request() string {
	return c.Type + ":1"
}

// Pick returns the first preference with free capacity. When none is free it
// still returns the first preference: the job queues until that type frees up
// rather than failing submission.
func Pick(prefs []string, report availability.Report) (Choice, error) {
	if len(prefs) == 0 {
		return Choice{}, fmt.Errorf("empty preference list")
	}
	for _, p := range prefs {
		if report.Has(p) {
			return Choice{Type: p, Available: true}, nil
		}
	}
	return Choice{Type: prefs[0]}, nil
}
