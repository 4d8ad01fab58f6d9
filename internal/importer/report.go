package importer

// Status is the terminal state of one imported item.
type Status string

const (
	StatusCreated  Status = "created"
	StatusMerged   Status = "merged"
	StatusRejected Status = "rejected"
)

// Result records the outcome of one item.
type Result struct {
	Status    Status
	Slug      string
	Reference string
	Source    string
	Err       error
}

// Report summarizes a batch run.
type Report struct {
	Created  int
	Merged   int
	Rejected int
	Results  []Result
}

func (r *Report) add(res Result) {
	switch res.Status {
	case StatusCreated:
		r.Created++
	case StatusMerged:
		r.Merged++
	case StatusRejected:
		r.Rejected++
	}
	r.Results = append(r.Results, res)
}

// Total returns the number of processed items.
func (r *Report) Total() int {
	return len(r.Results)
}
