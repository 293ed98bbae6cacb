package telemetry

// API is how scraping code reports what happened to it. Tests swap in a
// Recorder, the CLI uses SlogAPI optionally wrapped in OtelAPI.
//
// note: fault injection point
type API interface {
	// ReportBroken reports a component that failed and could not recover.
	//
	// `id` names the component, not the line that failed: a failed GET of the
	// grades page and a missing grades table are both `client.grades`. Details
	// go into params or a wrapped error.
	//
	// ids are lowercase, underscores separate words of a large component and
	// dashes separate a sub-part of it, ex. `obs_scraper`, `client.grades-courses`.
	ReportBroken(id string, params ...any)

	// ReportWarning reports a degraded result that was still returned, ex. a course
	// whose class averages fell back to placeholders.
	ReportWarning(id string, params ...any)

	// ReportDebug is dropped unless verbose logging is on.
	ReportDebug(msg string, params ...any)

	// ReportCount reports the value of a gauge at the current time, ex. the number
	// of courses on a grades page. Successive counts are not summed.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id (and debug message) with a namespace, it is what a
// component holds instead of the API it was given.
type ScopedAPI struct {
	prefix string
	inner  API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{prefix: namespace + ": ", inner: inner}
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.prefix+id, params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.prefix+id, params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.prefix+msg, params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.prefix+id, count)
}
