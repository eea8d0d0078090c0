package domain

// Responsible is a person eligible to own deals.
type Responsible struct {
	ID     string
	Name   string
	Active bool
}

// FindResponsible looks up a responsible by id in the given active set.
func FindResponsible(responsibles []Responsible, id string) (Responsible, bool) {
	for _, r := range responsibles {
		if r.ID == id {
			return r, true
		}
	}
	return Responsible{}, false
}
