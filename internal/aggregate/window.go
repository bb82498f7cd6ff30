package aggregate

const (
	windowRadius    = 2
	maxSelectorPage = 50
	selectorMinimum = 5
)

// Window describes the page links shown around the current page. The zero
// value means no pagination is shown.
type Window struct {
	Current     int   `json:"current"`
	TotalPages  int   `json:"totalPages"`
	Prev        int   `json:"prev,omitempty"`
	Next        int   `json:"next,omitempty"`
	First       int   `json:"first,omitempty"`
	LeadingGap  bool  `json:"leadingGap,omitempty"`
	Pages       []int `json:"pages,omitempty"`
	TrailingGap bool  `json:"trailingGap,omitempty"`
	Last        int   `json:"last,omitempty"`
	Selector    []int `json:"selector,omitempty"`
}

func NewWindow(current, totalPages int) Window {
	if totalPages <= 1 {
		return Window{}
	}
	current = max(1, min(current, totalPages))
	w := Window{Current: current, TotalPages: totalPages}
	if current > 1 {
		w.Prev = current - 1
	}
	if current < totalPages {
		w.Next = current + 1
	}
	if current > windowRadius+1 {
		w.First = 1
		w.LeadingGap = current > windowRadius+2
	}
	start := max(1, current-windowRadius)
	end := min(totalPages, current+windowRadius)
	for p := start; p <= end; p++ {
		w.Pages = append(w.Pages, p)
	}
	if current < totalPages-windowRadius {
		w.Last = totalPages
		w.TrailingGap = current < totalPages-windowRadius-1
	}
	if totalPages > selectorMinimum {
		n := min(totalPages, maxSelectorPage)
		w.Selector = make([]int, n)
		for i := range w.Selector {
			w.Selector[i] = i + 1
		}
	}
	return w
}
