package mcpreg

// ServerResult records the outcome of one bulk operation step for one server.
type ServerResult struct {
	// Server is the registry name the result applies to.
	Server string
	// Err is nil on success.
	Err error
	// Tools is the descriptor count fetched, for initialize and refresh
	// results.
	Tools int
	// Forced reports that shutdown fell back to forceful termination.
	Forced bool
}

// OK reports whether the step succeeded.
func (r ServerResult) OK() bool { return r.Err == nil }

// InitReport collects per-server outcomes of InitializeAll so callers can
// observe partial failure programmatically instead of scraping log output.
type InitReport struct {
	Results []ServerResult
}

// Succeeded returns the names that connected and listed tools.
func (r *InitReport) Succeeded() []string { return resultNames(r.Results, true) }

// Failed returns the names that were skipped due to an error.
func (r *InitReport) Failed() []string { return resultNames(r.Results, false) }

// RefreshReport collects per-server outcomes of RefreshTools. A failed entry
// kept its previous cached tool list.
type RefreshReport struct {
	Results []ServerResult
}

// Failed returns the names whose refresh failed.
func (r *RefreshReport) Failed() []string { return resultNames(r.Results, false) }

// CloseReport collects per-server outcomes of Close. Every listed server was
// removed from the registry regardless of its Err.
type CloseReport struct {
	Results []ServerResult
}

// Forced returns the names whose subprocess needed forceful termination.
func (r *CloseReport) Forced() []string {
	var names []string
	for _, res := range r.Results {
		if res.Forced {
			names = append(names, res.Server)
		}
	}
	return names
}

func resultNames(results []ServerResult, ok bool) []string {
	var names []string
	for _, res := range results {
		if res.OK() == ok {
			names = append(names, res.Server)
		}
	}
	return names
}
