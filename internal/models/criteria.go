package models

// CandidateCriteria describes a comparable-property query. Price and bedroom
// bounds are inclusive. An empty City or Statuses means "any".
type CandidateCriteria struct {
	City        string
	MinPrice    int64
	MaxPrice    int64
	MinBedrooms int
	MaxBedrooms int
	Statuses    []Status
	ExcludeIDs  []string
	Limit       int
}

// StatusStrings returns the status filter as plain strings for query drivers.
func (c *CandidateCriteria) StatusStrings() []string {
	out := make([]string, len(c.Statuses))
	for i, s := range c.Statuses {
		out[i] = string(s)
	}
	return out
}
