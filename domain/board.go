package domain

// Column is one status bucket of the board.
type Column struct {
	ID    Status `json:"id"`
	Title string `json:"title"`
	Tasks []Task `json:"tasks"`
}

var columnOrder = [...]struct {
	id    Status
	title string
}{
	{StatusTodo, "To Do"},
	{StatusInProgress, "In Progress"},
	{StatusReview, "Review"},
	{StatusDone, "Done"},
}

// ProjectBoard places every task in the column matching its status.
// The four columns are always returned in the same order; tasks keep their
// source order and tasks with an unknown status are left out.
func ProjectBoard(tasks []Task) []Column {
	cols := make([]Column, len(columnOrder))
	idx := make(map[Status]int, len(columnOrder))
	for i, c := range columnOrder {
		cols[i] = Column{ID: c.id, Title: c.title, Tasks: []Task{}}
		idx[c.id] = i
	}
	for _, t := range tasks {
		i, ok := idx[t.Status]
		if !ok {
			continue
		}
		cols[i].Tasks = append(cols[i].Tasks, t)
	}
	return cols
}
