package batching

const reasonNotSelected = "Eligible but not selected in current batch cycle"

// Finalize closes out any record still marked ready so every lead leaves the
// run in a terminal state with a reason.
func Finalize(records []Record) []Record {
	out := make([]Record, len(records))
	copy(out, records)
	for i := range out {
		if out[i].Status != StatusReady {
			continue
		}
		out[i].Status = StatusFuture
		if out[i].Reason == "" {
			out[i].Reason = reasonNotSelected
		}
	}
	return out
}

// Run pushes leads through filtering, per-company selection, provider
// scheduling and finalization. The result has one record per lead, in
// input order.
func Run(leads []Lead, opts Options) ([]Record, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	tiers := opts.Tiers
	if tiers == nil {
		tiers = DefaultTiers()
	}
	tiers = tiers.Normalized()

	records := make([]Record, len(leads))
	for i, lead := range leads {
		lead.Provider = NormalizeProvider(lead.Provider)
		records[i] = Record{Lead: lead, Status: StatusReady}
	}

	companyTiers := ResolveTiers(tiers, CompanyHeadcounts(leads))
	records = Filter(records, companyTiers)
	records, selected := Select(records, companyTiers)
	records = Schedule(records, selected, opts)
	return Finalize(records), nil
}

// RunTable extracts leads from t, runs the engine and returns a copy of t
// with the annotation columns written back.
func RunTable(t *Table, cols Columns, opts Options) (*Table, []Record, error) {
	leads, err := t.Leads(cols)
	if err != nil {
		return nil, nil, err
	}
	records, err := Run(leads, opts)
	if err != nil {
		return nil, nil, err
	}
	return t.Annotate(records), records, nil
}
