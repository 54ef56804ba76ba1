package coverage

import "math"

// ContractSummary aggregates items belonging to one contract.
type ContractSummary struct {
	Contract   string  `json:"contract"`
	Total      int     `json:"total"`
	Matched    int     `json:"matched"`
	Percentage float64 `json:"percentage"`
}

// Summary holds run-level aggregates derived from coverage items.
type Summary struct {
	Total      int               `json:"total"`
	Matched    int               `json:"matched"`
	Unmatched  int               `json:"unmatched"`
	Percentage float64           `json:"percentage"`
	ByContract []ContractSummary `json:"by_contract,omitempty"`
}

// Summarize aggregates items. An empty list yields 0%.
func Summarize(items []Item) Summary {
	s := Summary{Total: len(items)}
	byContract := make(map[string]*ContractSummary)
	var order []string

	for _, it := range items {
		name := ""
		if it.Operation != nil {
			name = it.Operation.Common().ContractName
		}
		cs, ok := byContract[name]
		if !ok {
			cs = &ContractSummary{Contract: name}
			byContract[name] = cs
			order = append(order, name)
		}
		cs.Total++
		if !it.Unmatched {
			s.Matched++
			cs.Matched++
		}
	}
	s.Unmatched = s.Total - s.Matched
	s.Percentage = percentage(s.Matched, s.Total)

	if len(order) > 1 || (len(order) == 1 && order[0] != "") {
		for _, name := range order {
			cs := byContract[name]
			cs.Percentage = percentage(cs.Matched, cs.Total)
			s.ByContract = append(s.ByContract, *cs)
		}
	}
	return s
}

// Unmatched returns the items left without any matched exchange.
func Unmatched(items []Item) []Item {
	var out []Item
	for _, it := range items {
		if it.Unmatched {
			out = append(out, it)
		}
	}
	return out
}

func percentage(matched, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(matched)*10000/float64(total)) / 100
}
